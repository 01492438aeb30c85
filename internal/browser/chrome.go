package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"msauth/pkg/logging"
)

// ChromeLauncher starts Chromium-based browsers over the DevTools protocol.
type ChromeLauncher struct {
	// ExecPath is the browser binary. Empty means chromedp's lookup of the
	// usual Chrome and Chromium locations.
	ExecPath string

	Logger *slog.Logger
}

// NewChromeLauncher creates a launcher for the given browser binary.
func NewChromeLauncher(execPath string, logger *slog.Logger) *ChromeLauncher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ChromeLauncher{ExecPath: execPath, Logger: logger}
}

// Launch starts a fresh browser with its own temporary profile, installs the
// cookies and starts recording main frame navigations.
func (l *ChromeLauncher) Launch(ctx context.Context, opts Options) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.WindowSize(1024, 768),
	)
	if l.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.ExecPath))
	}

	// The browser outlives the launch call, so it is bound to a detached
	// context and stopped through Close.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			l.Logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	s := &chromeSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		history:     NewHistory(),
		logger:      l.Logger,
	}

	chromedp.ListenTarget(browserCtx, s.onEvent)

	cookies := make([]*network.CookieParam, 0, len(opts.Cookies))
	for _, c := range opts.Cookies {
		cookies = append(cookies, &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}

	actions := []chromedp.Action{network.Enable()}
	if len(cookies) > 0 {
		actions = append(actions, network.SetCookies(cookies))
	}

	// The first Run allocates the browser process and binds it to the context
	// it is given, so it runs on the session context. ctx only aborts the
	// launch by closing the session.
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	err := chromedp.Run(s.ctx, actions...)
	stop()
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = s.Close()
		return nil, ctxErr
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.Logger.Debug("Browser started", "headless", opts.Headless, "cookies", len(cookies))
	return s, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	history     *History
	logger      *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *chromeSession) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		// Document requests show the redirect target even when the host
		// behind it is unreachable and the navigation never commits.
		if e.Type == network.ResourceTypeDocument && e.Request != nil {
			s.history.Record(e.Request.URL + e.Request.URLFragment)
		}
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			s.history.Record(e.Frame.URL + e.Frame.URLFragment)
		}
	}
}

// run executes actions on the already started browser, stopping early when
// ctx ends. Cancelling the derived context aborts the actions only; the
// browser stays bound to s.ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitForURL(ctx context.Context, prefix string) (string, error) {
	return s.history.WaitFor(ctx, prefix)
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancel()
		s.allocCancel()
		s.logger.Debug("Browser closed")
	})
	return s.closeErr
}
