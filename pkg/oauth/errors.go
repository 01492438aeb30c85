package oauth

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingRefreshToken is returned when a refresh is requested without a
// refresh token. No request is sent to the token endpoint in that case.
var ErrMissingRefreshToken = errors.New("no refresh token available")

// MalformedTokenError is returned when a JWT cannot be split or decoded.
type MalformedTokenError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed token: %s: %v", e.Reason, e.Err)
	}
	return "malformed token: " + e.Reason
}

// Unwrap returns the underlying decoding error.
func (e *MalformedTokenError) Unwrap() error {
	return e.Err
}

// RedirectTimeoutError is returned when the browser did not reach the
// redirect URI within the allotted time.
type RedirectTimeoutError struct {
	RedirectURI string
	Timeout     time.Duration
}

// Error implements the error interface.
func (e *RedirectTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for redirect to %s", e.Timeout, e.RedirectURI)
}

// BrowserSessionError wraps a failure of the controlled browser.
type BrowserSessionError struct {
	// Op is the browser operation that failed (launch, navigate, wait).
	Op  string
	Err error
}

// Error implements the error interface.
func (e *BrowserSessionError) Error() string {
	return fmt.Sprintf("browser %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying browser error.
func (e *BrowserSessionError) Unwrap() error {
	return e.Err
}

// AuthorizationCodeMissingError is returned when the final redirect carries
// no authorization code. The identity provider usually reports why through
// the error and error_description parameters.
type AuthorizationCodeMissingError struct {
	ErrorCode   string
	Description string
	RedirectURL string

	// Err is set when the redirect URL could not be parsed.
	Err error
}

// Error implements the error interface.
func (e *AuthorizationCodeMissingError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("authorization code not found in redirect: invalid redirect URL: %v", e.Err)
	case e.ErrorCode != "" && e.Description != "":
		return fmt.Sprintf("authorization code not found in redirect: %s - %s", e.ErrorCode, e.Description)
	case e.ErrorCode != "":
		return "authorization code not found in redirect: " + e.ErrorCode
	default:
		return "authorization code not found in redirect URL"
	}
}

// Unwrap returns the URL parse error, if any.
func (e *AuthorizationCodeMissingError) Unwrap() error {
	return e.Err
}

// StateMismatchError is returned when the state in the redirect differs from
// the one sent with the authorization request.
type StateMismatchError struct {
	ExpectedLen int
	ReceivedLen int
}

// Error implements the error interface.
func (e *StateMismatchError) Error() string {
	if e.ReceivedLen == 0 {
		return "state mismatch: redirect carried no state - possible CSRF attack"
	}
	return "state mismatch - possible CSRF attack"
}

// TokenEndpointError carries the details of a non-200 token endpoint response.
type TokenEndpointError struct {
	StatusCode  int
	Body        string
	OAuthError  string
	Description string
}

func (e *TokenEndpointError) message(action string) string {
	if e.OAuthError != "" {
		if e.Description != "" {
			return fmt.Sprintf("%s failed with status %d: %s - %s", action, e.StatusCode, e.OAuthError, e.Description)
		}
		return fmt.Sprintf("%s failed with status %d: %s", action, e.StatusCode, e.OAuthError)
	}
	return fmt.Sprintf("%s failed with status %d: %s", action, e.StatusCode, e.Body)
}

// TokenExchangeError is returned when exchanging an authorization code fails.
type TokenExchangeError struct {
	TokenEndpointError
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	return e.message("token exchange")
}

// TokenRefreshError is returned when a refresh token grant fails.
type TokenRefreshError struct {
	TokenEndpointError
}

// Error implements the error interface.
func (e *TokenRefreshError) Error() string {
	return e.message("token refresh")
}

// IsInvalidGrant reports whether the endpoint rejected the refresh token
// itself, in which case retrying with the same token cannot succeed.
func (e *TokenRefreshError) IsInvalidGrant() bool {
	return e.OAuthError == "invalid_grant"
}

// PersistenceError is returned when a token snapshot cannot be written.
// The in-memory token remains valid.
type PersistenceError struct {
	Location string
	Err      error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist tokens to %s: %v", e.Location, e.Err)
}

// Unwrap returns the underlying I/O error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
