package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"msauth/internal/config"
	"msauth/internal/token"
	"msauth/pkg/oauth"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ClassifyConnectionError returns the kind of transport failure behind err,
// and false when err is not a transport failure.
func ClassifyConnectionError(err error) (ConnectionErrorType, bool) {
	if err == nil {
		return ConnectionErrorUnknown, false
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return ConnectionErrorUnknown, false
	}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		return ConnectionErrorTLS, true
	case errors.As(err, &dnsErr):
		return ConnectionErrorDNS, true
	case urlErr.Timeout():
		return ConnectionErrorTimeout, true
	case isNetworkError(err.Error()):
		return ConnectionErrorNetwork, true
	default:
		return ConnectionErrorUnknown, true
	}
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "x509:") || strings.Contains(errStr, "tls:")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// LoginFailedError is what the CLI reports when no tokens could be acquired.
// It adds actionable guidance to the underlying error.
type LoginFailedError struct {
	// Profile is the application profile the login was attempted with.
	Profile string
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *LoginFailedError) Error() string {
	msg := fmt.Sprintf("Login with profile %q failed: %v", e.Profile, e.Reason)
	if hint := Guidance(e.Reason); hint != "" {
		msg += "\n\n" + hint
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LoginFailedError) Unwrap() error {
	return e.Reason
}

// Guidance returns a hint for the user on how to get past err, or "".
func Guidance(err error) string {
	var (
		timeoutErr    *oauth.RedirectTimeoutError
		browserErr    *oauth.BrowserSessionError
		missingErr    *oauth.AuthorizationCodeMissingError
		stateErr      *oauth.StateMismatchError
		exchangeErr   *oauth.TokenExchangeError
		refreshErr    *oauth.TokenRefreshError
		abandonedErr  *token.RefreshAbandonedError
		profileErr    *config.ProfileNotFoundError
		persistErr    *oauth.PersistenceError
		validationErr config.ValidationErrors
	)

	switch {
	case errors.As(err, &timeoutErr):
		return "The browser never reached the redirect URI. Complete the login faster, raise --timeout,\nor run without --headless to see what the login page is asking for."
	case errors.As(err, &browserErr) && browserErr.Op == "launch":
		return "No usable Chrome or Chromium was found. Install one or point --chrome-path at the binary."
	case errors.As(err, &browserErr):
		return "The browser failed while loading the login page. Check network access to login.microsoftonline.com."
	case errors.As(err, &missingErr) && missingErr.ErrorCode != "":
		return "The identity provider rejected the request. The profile's client id, redirect URI or scopes\nmay not be accepted by your tenant; try another profile (see: msauth configs)."
	case errors.As(err, &stateErr):
		return "The redirect did not belong to this login attempt. Run the command again."
	case errors.As(err, &exchangeErr) && exchangeErr.OAuthError == "invalid_grant":
		return "The authorization code was rejected. Codes are single use and short lived; run the command again."
	case errors.As(err, &exchangeErr):
		return "The token endpoint rejected the code redemption. Check that the profile's redirect URI is registered for its client id."
	case errors.As(err, &refreshErr) && refreshErr.IsInvalidGrant(), errors.As(err, &abandonedErr):
		return "The refresh token is no longer accepted. Log in again to obtain a new one."
	case errors.As(err, &profileErr):
		return "List the available profiles with: msauth configs"
	case errors.As(err, &validationErr):
		return "Fix the profile in your configuration file (see: msauth configs)."
	case errors.As(err, &persistErr):
		return "The tokens were acquired but could not be saved. Check --save-path or the Kubernetes permissions."
	}

	if kind, ok := ClassifyConnectionError(err); ok {
		switch kind {
		case ConnectionErrorTLS:
			return "TLS verification of the identity platform failed. A proxy may be intercepting traffic."
		case ConnectionErrorDNS:
			return "login.microsoftonline.com could not be resolved. Check your DNS settings."
		case ConnectionErrorTimeout:
			return "The identity platform did not answer in time. Check your network and try again."
		default:
			return "The identity platform could not be reached. Check your network connection."
		}
	}
	return ""
}
