package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"msauth/internal/browser"
	"msauth/pkg/logging"
	"msauth/pkg/oauth"
)

const (
	// DefaultLoginTimeout bounds the wait for the redirect.
	DefaultLoginTimeout = 120 * time.Second

	// SSOCookieName is the cookie login.microsoftonline.com reads a primary
	// refresh token credential from.
	SSOCookieName = "x-ms-RefreshTokenCredential"

	// SSOCookieDomain is where the SSO cookie is installed.
	SSOCookieDomain = "login.microsoftonline.com"

	// navigateGracePeriod is how long to look for an already captured redirect
	// after Navigate failed.
	navigateGracePeriod = 2 * time.Second
)

// LoginRequest describes one interactive login.
type LoginRequest struct {
	AuthURL     string
	RedirectURI string
	State       string

	// SSOCookie is an optional x-ms-RefreshTokenCredential value.
	SSOCookie string

	Headless bool

	// Timeout bounds the wait for the redirect (DefaultLoginTimeout if zero).
	Timeout time.Duration
}

// LoginSession drives a browser through the authorization endpoint until it
// is redirected back to the redirect URI.
type LoginSession struct {
	launcher browser.Launcher
	logger   *slog.Logger
}

// NewLoginSession creates a login session on top of launcher.
func NewLoginSession(launcher browser.Launcher, logger *slog.Logger) *LoginSession {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LoginSession{launcher: launcher, logger: logger}
}

// Run opens AuthURL in a fresh browser and returns the authorization
// response once the browser reaches RedirectURI. The browser is closed
// before Run returns.
func (s *LoginSession) Run(ctx context.Context, req LoginRequest) (*oauth.AuthorizationResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}

	opts := browser.Options{Headless: req.Headless}
	if req.SSOCookie != "" {
		opts.Cookies = append(opts.Cookies, browser.Cookie{
			Name:     SSOCookieName,
			Value:    req.SSOCookie,
			Domain:   SSOCookieDomain,
			Path:     "/",
			HTTPOnly: true,
			Secure:   true,
		})
		s.logger.Debug("Injecting SSO cookie", "cookie", logging.Redact(req.SSOCookie))
	}

	session, err := s.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, &oauth.BrowserSessionError{Op: "launch", Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Debug("Failed to close browser", "error", err)
		}
	}()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("Waiting for login redirect", "redirect_uri", req.RedirectURI, "timeout", timeout)

	var finalURL string
	if navErr := session.Navigate(waitCtx, req.AuthURL); navErr != nil {
		// Redirects to hosts nothing listens on make navigation fail after the
		// URL was already seen.
		graceCtx, graceCancel := context.WithTimeout(waitCtx, navigateGracePeriod)
		finalURL, err = session.WaitForURL(graceCtx, req.RedirectURI)
		graceCancel()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, fmt.Errorf("login cancelled: %w", ctx.Err())
			case errors.Is(navErr, context.DeadlineExceeded), waitCtx.Err() != nil:
				// The page was still loading when the login timeout ran out.
				return nil, &oauth.RedirectTimeoutError{RedirectURI: req.RedirectURI, Timeout: timeout}
			default:
				return nil, &oauth.BrowserSessionError{Op: "navigate", Err: navErr}
			}
		}
	} else {
		finalURL, err = session.WaitForURL(waitCtx, req.RedirectURI)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil, fmt.Errorf("login cancelled: %w", ctx.Err())
			case errors.Is(err, context.DeadlineExceeded):
				return nil, &oauth.RedirectTimeoutError{RedirectURI: req.RedirectURI, Timeout: timeout}
			default:
				return nil, &oauth.BrowserSessionError{Op: "wait", Err: err}
			}
		}
	}

	s.logger.Debug("Login redirect captured")

	result, err := oauth.ParseAuthorizationResponse(finalURL)
	if err != nil {
		return nil, err
	}
	if err := result.VerifyState(req.State); err != nil {
		return nil, err
	}
	return result, nil
}
