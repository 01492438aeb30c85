// Package browser drives the browser used for interactive logins.
//
// The login flow only needs three things from a browser: open a page with
// some cookies preset, report the URLs it navigates through, and shut down.
// Launcher and Session capture exactly that so the flow can be tested
// without a real browser.
package browser

import (
	"context"
)

// Cookie is a cookie preset in the browser before navigation.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	HTTPOnly bool
	Secure   bool
}

// Options configure a browser launch.
type Options struct {
	// Headless runs the browser without a window.
	Headless bool

	// Cookies are added to the isolated browser profile before navigation.
	Cookies []Cookie
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Session, error)
}

// Session is a single, isolated browser instance.
type Session interface {
	// Navigate loads url in the main frame.
	Navigate(ctx context.Context, url string) error

	// WaitForURL blocks until the main frame has loaded (or attempted to
	// load) a URL starting with prefix and returns that URL. URLs seen
	// before the call count. It returns ctx.Err() when ctx ends first.
	WaitForURL(ctx context.Context, prefix string) (string, error)

	// Close shuts the browser down. It is safe to call more than once.
	Close() error
}
