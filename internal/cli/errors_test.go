package cli

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"msauth/internal/config"
	"msauth/internal/token"
	"msauth/pkg/oauth"
)

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ConnectionErrorType
		wantOK   bool
	}{
		{"nil", nil, ConnectionErrorUnknown, false},
		{"not transport", errors.New("boom"), ConnectionErrorUnknown, false},
		{
			"dns",
			&url.Error{Op: "Post", URL: "https://login", Err: &net.DNSError{Err: "no such host", Name: "login"}},
			ConnectionErrorDNS, true,
		},
		{
			"refused",
			&url.Error{Op: "Post", URL: "https://login", Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused")},
			ConnectionErrorNetwork, true,
		},
		{
			"tls",
			&url.Error{Op: "Post", URL: "https://login", Err: errors.New("tls: failed to verify certificate: x509: unknown authority")},
			ConnectionErrorTLS, true,
		},
		{
			"wrapped",
			fmt.Errorf("token request failed: %w", &url.Error{Op: "Post", URL: "https://login", Err: errors.New("dial tcp: no route to host")}),
			ConnectionErrorNetwork, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ClassifyConnectionError(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantType, kind)
		})
	}
}

func TestConnectionErrorType_String(t *testing.T) {
	assert.Equal(t, "DNS resolution error", ConnectionErrorDNS.String())
	assert.Equal(t, "Connection error", ConnectionErrorUnknown.String())
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"timeout", &oauth.RedirectTimeoutError{}, "--timeout"},
		{"launch", &oauth.BrowserSessionError{Op: "launch", Err: errors.New("x")}, "--chrome-path"},
		{"navigate", &oauth.BrowserSessionError{Op: "navigate", Err: errors.New("x")}, "network access"},
		{"provider", &oauth.AuthorizationCodeMissingError{ErrorCode: "invalid_client"}, "msauth configs"},
		{"state", &oauth.StateMismatchError{}, "again"},
		{"invalid grant", &oauth.TokenExchangeError{TokenEndpointError: oauth.TokenEndpointError{OAuthError: "invalid_grant"}}, "single use"},
		{"abandoned", &token.RefreshAbandonedError{Attempts: 3, Err: errors.New("x")}, "Log in again"},
		{"profile", &config.ProfileNotFoundError{Name: "x"}, "msauth configs"},
		{"persist", fmt.Errorf("save: %w", &oauth.PersistenceError{Location: "f", Err: errors.New("x")}), "--save-path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Guidance(tt.err), tt.contains)
		})
	}

	assert.Empty(t, Guidance(errors.New("unclassified")))
}

func TestLoginFailedError(t *testing.T) {
	reason := &oauth.RedirectTimeoutError{RedirectURI: "https://app", Timeout: 0}
	err := &LoginFailedError{Profile: "graph", Reason: reason}

	assert.Contains(t, err.Error(), `profile "graph"`)
	assert.Contains(t, err.Error(), "--timeout")

	var timeoutErr *oauth.RedirectTimeoutError
	assert.True(t, errors.As(err, &timeoutErr))
}
