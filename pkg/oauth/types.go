package oauth

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// DefaultTenant is used when no tenant is configured. The common endpoint
// accepts both work/school and personal accounts.
const DefaultTenant = "common"

// TokenRefreshThreshold is how long before expiry tokens are proactively refreshed.
const TokenRefreshThreshold = 5 * time.Minute

// Defaults used by refresh requests when the caller does not configure a
// client. They match the Microsoft Graph Explorer public client, which is
// what tokens obtained with the default profile are bound to.
const (
	DefaultRefreshClientID = "de8bc8b5-d9f9-48b1-a8ad-b748da725064"
	DefaultRefreshScope    = "openid https://graph.microsoft.com/.default offline_access"
	DefaultRefreshOrigin   = "https://developer.microsoft.com"
)

// ClientConfig identifies the public client an authentication runs as.
type ClientConfig struct {
	// ClientID is the application (client) id registered with the identity platform.
	ClientID string

	// RedirectURI is the registered redirect URI. The browser is considered
	// done once it reaches a URL starting with this value.
	RedirectURI string

	// Scopes requested for the token. "openid" is added when missing.
	Scopes []string

	// Tenant is the directory to authenticate against. Defaults to "common".
	Tenant string

	// Origin overrides the Origin header sent to the token endpoint. When
	// empty it is derived from RedirectURI.
	Origin string

	// OmitOrigin suppresses the Origin header. Public clients registered as
	// native or web apps reject cross-origin redemption.
	OmitOrigin bool
}

// DefaultRefreshConfig returns the client used for refresh requests when no
// other client is configured.
func DefaultRefreshConfig() ClientConfig {
	return ClientConfig{
		ClientID: DefaultRefreshClientID,
		Scopes:   strings.Fields(DefaultRefreshScope),
		Tenant:   DefaultTenant,
		Origin:   DefaultRefreshOrigin,
	}
}

// TenantOrDefault returns the configured tenant or "common".
func (c ClientConfig) TenantOrDefault() string {
	if c.Tenant == "" {
		return DefaultTenant
	}
	return c.Tenant
}

// Scope returns the space-separated scope string sent to the identity platform.
func (c ClientConfig) Scope() string {
	return BuildScope(c.Scopes)
}

// OriginHeader returns the Origin header value for token requests. Clients
// registered as single-page applications are only redeemed when the request
// carries an Origin, so it is derived from the redirect URI's host.
func (c ClientConfig) OriginHeader() string {
	if c.OmitOrigin {
		return ""
	}
	if c.Origin != "" {
		return c.Origin
	}
	return OriginFromRedirectURI(c.RedirectURI)
}

// OriginFromRedirectURI returns scheme://host of a redirect URI, or "" when
// the URI has no host (e.g. urn:ietf:wg:oauth:2.0:oob).
func OriginFromRedirectURI(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// AzureADEndpoint returns the Microsoft identity platform v2.0 endpoints for a tenant.
func AzureADEndpoint(tenant string) oauth2.Endpoint {
	if tenant == "" {
		tenant = DefaultTenant
	}
	return endpoints.AzureAD(tenant)
}

// TokenSet is the raw result of a token endpoint exchange.
type TokenSet struct {
	// AccessToken is the bearer token used for authorization.
	AccessToken string `json:"access_token"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// RefreshToken is used to obtain new access tokens (optional).
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the token lifetime in seconds (from token response).
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`

	// IDToken is the OIDC ID token (if available).
	IDToken string `json:"id_token,omitempty"`
}

// Scopes returns the scope as a slice of individual scopes.
func (t *TokenSet) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// ToOAuth2Token converts the TokenSet to an oauth2.Token for compatibility
// with golang.org/x/oauth2, computing the expiry relative to now.
func (t *TokenSet) ToOAuth2Token(now time.Time) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}

	if t.IDToken != "" {
		token = token.WithExtra(map[string]interface{}{
			"id_token": t.IDToken,
		})
	}

	return token
}
