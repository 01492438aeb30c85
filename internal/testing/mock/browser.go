package mock

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"msauth/internal/browser"
)

// Browser is a scripted browser.Launcher. Navigate records the URL and, when
// Redirect is set, immediately "lands" on the URL it returns.
type Browser struct {
	// Redirect computes the final URL for a navigated authorization URL.
	// Returning "" simulates a login that never completes.
	Redirect func(authURL string) string

	// LaunchErr and NavigateErr make the corresponding calls fail.
	LaunchErr   error
	NavigateErr error

	// NavigateBlocks makes Navigate hang until its context ends, like a page
	// that never finishes loading.
	NavigateBlocks bool

	mu       sync.Mutex
	launches []browser.Options
	sessions []*BrowserSession
}

// Launch implements browser.Launcher.
func (b *Browser) Launch(ctx context.Context, opts browser.Options) (browser.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.launches = append(b.launches, opts)
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}

	s := &BrowserSession{owner: b, history: browser.NewHistory()}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Launches returns the options of every launch.
func (b *Browser) Launches() []browser.Options {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]browser.Options(nil), b.launches...)
}

// Sessions returns every session started so far.
func (b *Browser) Sessions() []*BrowserSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*BrowserSession(nil), b.sessions...)
}

// BrowserSession is a session created by Browser.
type BrowserSession struct {
	owner   *Browser
	history *browser.History

	mu        sync.Mutex
	navigated []string
	closed    int
}

// Navigate implements browser.Session.
func (s *BrowserSession) Navigate(ctx context.Context, target string) error {
	s.mu.Lock()
	s.navigated = append(s.navigated, target)
	s.mu.Unlock()

	s.history.Record(target)
	if s.owner.NavigateBlocks {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.owner.Redirect != nil {
		if final := s.owner.Redirect(target); final != "" {
			s.history.Record(final)
		}
	}
	return s.owner.NavigateErr
}

// WaitForURL implements browser.Session.
func (s *BrowserSession) WaitForURL(ctx context.Context, prefix string) (string, error) {
	return s.history.WaitFor(ctx, prefix)
}

// Close implements browser.Session.
func (s *BrowserSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

// Navigated returns the URLs passed to Navigate.
func (s *BrowserSession) Navigated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigated...)
}

// Closed reports whether Close was called.
func (s *BrowserSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed > 0
}

// RedirectWithCode returns a Redirect func that answers every authorization
// URL with redirectURI?code=code&state=<state from the authorization URL>.
func RedirectWithCode(redirectURI, code string) func(string) string {
	return func(authURL string) string {
		u, err := url.Parse(authURL)
		if err != nil {
			return ""
		}
		q := url.Values{}
		q.Set("code", code)
		q.Set("state", u.Query().Get("state"))
		return redirectURI + "?" + q.Encode()
	}
}

// ErrBrowserCrashed is a convenience error for scripted failures.
var ErrBrowserCrashed = errors.New("browser crashed")
