package oauth

import (
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// ScopeOpenID is always part of the requested scope.
const ScopeOpenID = "openid"

// AuthorizationRequest holds the parameters of an authorization code request.
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Tenant              string

	// Prompt and LoginHint are optional OIDC parameters.
	Prompt    string
	LoginHint string
}

// BuildScope joins scopes with spaces and prefixes "openid" when the joined
// string does not already contain it.
func BuildScope(scopes []string) string {
	scope := strings.Join(scopes, " ")
	if scope == "" {
		return ScopeOpenID
	}
	if !strings.Contains(scope, ScopeOpenID) {
		scope = ScopeOpenID + " " + scope
	}
	return scope
}

// NewAuthorizationRequest assembles an authorization request for a client,
// a PKCE challenge and a state value.
func NewAuthorizationRequest(client ClientConfig, pkce *PKCEChallenge, state string) *AuthorizationRequest {
	req := &AuthorizationRequest{
		ClientID:    client.ClientID,
		RedirectURI: client.RedirectURI,
		Scopes:      client.Scopes,
		State:       state,
		Tenant:      client.TenantOrDefault(),
	}
	if pkce != nil {
		req.CodeChallenge = pkce.CodeChallenge
		req.CodeChallengeMethod = pkce.CodeChallengeMethod
	}
	return req
}

// Scope returns the scope parameter value.
func (r *AuthorizationRequest) Scope() string {
	return BuildScope(r.Scopes)
}

// Endpoint returns the identity platform endpoints for the request's tenant.
func (r *AuthorizationRequest) Endpoint() oauth2.Endpoint {
	return AzureADEndpoint(r.Tenant)
}

// URL serializes the request against the given endpoint's authorization URL.
// Client id and redirect URI are sent verbatim; the identity provider is the
// one to reject malformed values.
func (r *AuthorizationRequest) URL(endpoint oauth2.Endpoint) (string, error) {
	authURL, err := url.Parse(endpoint.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	query := authURL.Query()
	query.Set("client_id", r.ClientID)
	query.Set("scope", r.Scope())
	query.Set("redirect_uri", r.RedirectURI)
	query.Set("response_type", "code")
	query.Set("state", r.State)

	if r.CodeChallenge != "" {
		method := r.CodeChallengeMethod
		if method == "" {
			method = CodeChallengeMethodS256
		}
		query.Set("code_challenge", r.CodeChallenge)
		query.Set("code_challenge_method", method)
	}
	if r.Prompt != "" {
		query.Set("prompt", r.Prompt)
	}
	if r.LoginHint != "" {
		query.Set("login_hint", r.LoginHint)
	}

	authURL.RawQuery = query.Encode()
	return authURL.String(), nil
}

// AuthorizationResult represents the parameters of the final redirect.
type AuthorizationResult struct {
	// Code is the authorization code from the OAuth provider.
	Code string

	// State is the state parameter to verify against the original request.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string
}

// IsError returns true if the result represents an error.
func (r *AuthorizationResult) IsError() bool {
	return r.Error != ""
}

// ParseAuthorizationResponse extracts the authorization response from the
// URL the browser was redirected to. Parameters are read from the query
// string, or from the fragment when the query carries neither code nor error.
func ParseAuthorizationResponse(redirectURL string) (*AuthorizationResult, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, &AuthorizationCodeMissingError{RedirectURL: redirectURL, Err: err}
	}

	params := u.Query()
	if params.Get("code") == "" && params.Get("error") == "" && u.Fragment != "" {
		if fragment, err := url.ParseQuery(u.Fragment); err == nil {
			params = fragment
		}
	}

	result := &AuthorizationResult{
		Code:             params.Get("code"),
		State:            params.Get("state"),
		Error:            params.Get("error"),
		ErrorDescription: params.Get("error_description"),
	}

	if result.Code == "" {
		readable, unescapeErr := url.QueryUnescape(redirectURL)
		if unescapeErr != nil {
			readable = redirectURL
		}
		return nil, &AuthorizationCodeMissingError{
			ErrorCode:   result.Error,
			Description: result.ErrorDescription,
			RedirectURL: readable,
		}
	}

	return result, nil
}

// VerifyState compares the returned state with the expected one in constant time.
func (r *AuthorizationResult) VerifyState(expected string) error {
	if subtle.ConstantTimeCompare([]byte(r.State), []byte(expected)) != 1 {
		return &StateMismatchError{
			ExpectedLen: len(expected),
			ReceivedLen: len(r.State),
		}
	}
	return nil
}
