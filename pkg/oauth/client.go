package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	pkgstrings "msauth/pkg/strings"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests. It also
	// bounds a refresh that would otherwise hang on a stalled connection.
	DefaultHTTPTimeout = 30 * time.Second

	// clientCapabilitiesClaims advertises the CP1 client capability
	// (continuous access evaluation) on every token request.
	clientCapabilitiesClaims = `{"access_token":{"xms_cc":{"values":["CP1"]}}}`

	// maxErrorBodyBytes limits how much of an error response is kept.
	maxErrorBodyBytes = 4096
)

// Client performs token endpoint requests against the Microsoft identity
// platform. Each call is a single attempt; retry policy belongs to callers.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	// endpoint overrides the tenant-derived token URL (tests, sovereign clouds).
	endpoint *oauth2.Endpoint

	newRequestID func() string
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithEndpoint pins the token endpoint instead of deriving it from the tenant.
func WithEndpoint(endpoint oauth2.Endpoint) ClientOption {
	return func(c *Client) {
		c.endpoint = &endpoint
	}
}

// WithRequestIDGenerator replaces the generator of client-request-id values.
func WithRequestIDGenerator(gen func() string) ClientOption {
	return func(c *Client) {
		c.newRequestID = gen
	}
}

// NewClient creates a new token client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultHTTPTimeout},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		newRequestID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TokenURL returns the token endpoint used for the given tenant.
func (c *Client) TokenURL(tenant string) string {
	if c.endpoint != nil {
		return c.endpoint.TokenURL
	}
	return AzureADEndpoint(tenant).TokenURL
}

// ExchangeCode redeems an authorization code for tokens using the PKCE verifier.
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string, app ClientConfig) (*TokenSet, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {app.ClientID},
		"redirect_uri":  {app.RedirectURI},
		"scope":         {app.Scope()},
		"code":          {code},
		"code_verifier": {codeVerifier},
		"claims":        {clientCapabilitiesClaims},
	}

	status, body, err := c.doTokenRequest(ctx, c.TokenURL(app.TenantOrDefault()), app.OriginHeader(), data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &TokenExchangeError{newTokenEndpointError(status, body)}
	}

	return parseTokenSet(body)
}

// Refresh obtains a new token pair with a refresh token. Zero-value fields of
// app fall back to DefaultRefreshConfig. An empty refresh token fails with
// ErrMissingRefreshToken without contacting the endpoint.
func (c *Client) Refresh(ctx context.Context, refreshToken string, app ClientConfig) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	app = withRefreshDefaults(app)
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {app.ClientID},
		"scope":         {app.Scope()},
		"refresh_token": {refreshToken},
		"claims":        {clientCapabilitiesClaims},
	}
	if app.RedirectURI != "" {
		data.Set("redirect_uri", app.RedirectURI)
	}

	status, body, err := c.doTokenRequest(ctx, c.TokenURL(app.TenantOrDefault()), app.OriginHeader(), data)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &TokenRefreshError{newTokenEndpointError(status, body)}
	}

	return parseTokenSet(body)
}

func withRefreshDefaults(app ClientConfig) ClientConfig {
	defaults := DefaultRefreshConfig()
	if app.ClientID == "" {
		app.ClientID = defaults.ClientID
		// The default origin belongs to the default client only.
		if app.Origin == "" && app.RedirectURI == "" {
			app.Origin = defaults.Origin
		}
	}
	if len(app.Scopes) == 0 {
		app.Scopes = defaults.Scopes
	}
	if app.Tenant == "" {
		app.Tenant = defaults.Tenant
	}
	return app
}

// doTokenRequest performs a token endpoint request and returns the status
// and body. Transport failures are returned as errors.
func (c *Client) doTokenRequest(ctx context.Context, tokenEndpoint, origin string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create token request: %w", err)
	}

	requestID := c.newRequestID()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", requestID)
	req.Header.Set("return-client-request-id", "true")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}

	c.logger.Debug("Sending token request",
		"endpoint", tokenEndpoint,
		"grant_type", data.Get("grant_type"),
		"client_id", data.Get("client_id"),
		"request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Token request failed",
			"status", resp.StatusCode,
			"request_id", requestID,
			"body", pkgstrings.Truncate(string(body), maxErrorBodyBytes))
	}

	return resp.StatusCode, body, nil
}

func parseTokenSet(body []byte) (*TokenSet, error) {
	var set TokenSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if set.AccessToken == "" {
		return nil, fmt.Errorf("token response contains no access_token")
	}
	return &set, nil
}

func newTokenEndpointError(status int, body []byte) TokenEndpointError {
	e := TokenEndpointError{
		StatusCode: status,
		Body:       pkgstrings.Truncate(string(body), maxErrorBodyBytes),
	}

	var oauthErr struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &oauthErr) == nil {
		e.OAuthError = oauthErr.Error
		e.Description = oauthErr.Description
	}
	return e
}
