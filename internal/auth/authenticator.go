package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"msauth/internal/browser"
	"msauth/internal/config"
	"msauth/internal/token"
	"msauth/pkg/logging"
	"msauth/pkg/oauth"
)

// LoginOptions tune a single Authenticate call.
type LoginOptions struct {
	// ExtraScopes are appended to the profile's scopes.
	ExtraScopes []string

	// SSOCookie is an optional x-ms-RefreshTokenCredential value.
	SSOCookie string

	Headless bool
	Timeout  time.Duration

	// Prompt and LoginHint are passed to the authorization endpoint.
	Prompt    string
	LoginHint string

	// LifecycleOptions are applied to the returned token lifecycle.
	LifecycleOptions []token.Option
}

// Result is the outcome of a successful login.
type Result struct {
	// TokenSet is the raw token endpoint response.
	TokenSet *oauth.TokenSet

	// Lifecycle holds the tokens and refreshes them with the profile's client.
	Lifecycle *token.Lifecycle
}

// Authenticator runs the authorization code flow with PKCE end to end.
type Authenticator struct {
	launcher    browser.Launcher
	tokenClient *oauth.Client
	logger      *slog.Logger

	// authEndpoint overrides the tenant's authorization endpoint.
	authEndpoint *oauth2.Endpoint
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithAuthEndpoint sends the browser to endpoint instead of the tenant's
// authorization endpoint.
func WithAuthEndpoint(endpoint oauth2.Endpoint) AuthenticatorOption {
	return func(a *Authenticator) {
		a.authEndpoint = &endpoint
	}
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(launcher browser.Launcher, tokenClient *oauth.Client, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		launcher:    launcher,
		tokenClient: tokenClient,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.With(a.logger, "auth")
	return a
}

// Authenticate logs in as app and returns the tokens. Nothing is retried;
// the first failure is returned.
func (a *Authenticator) Authenticate(ctx context.Context, app config.AppConfig, opts LoginOptions) (*Result, error) {
	if err := app.Validate(); err != nil {
		return nil, config.FormatValidationError("profile", app.Name, err)
	}

	client := app.Client()
	client.Scopes = append(client.Scopes, opts.ExtraScopes...)

	pkce, err := oauth.GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := oauth.GenerateState()
	if err != nil {
		return nil, err
	}

	req := oauth.NewAuthorizationRequest(client, pkce, state)
	req.Prompt = opts.Prompt
	req.LoginHint = opts.LoginHint

	endpoint := req.Endpoint()
	if a.authEndpoint != nil {
		endpoint = *a.authEndpoint
	}
	authURL, err := req.URL(endpoint)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Starting interactive login",
		"profile", app.Name,
		"client_id", client.ClientID,
		"tenant", client.TenantOrDefault(),
		"scope", req.Scope())

	session := NewLoginSession(a.launcher, a.logger)
	result, err := session.Run(ctx, LoginRequest{
		AuthURL:     authURL,
		RedirectURI: client.RedirectURI,
		State:       state,
		SSOCookie:   opts.SSOCookie,
		Headless:    opts.Headless,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	set, err := a.tokenClient.ExchangeCode(ctx, result.Code, pkce.CodeVerifier, client)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem authorization code: %w", err)
	}

	// SECURITY_AUDIT: only metadata, never token values
	a.logger.Info("SECURITY_AUDIT: tokens acquired",
		"profile", app.Name,
		"has_refresh_token", set.RefreshToken != "",
		"expires_in", set.ExpiresIn)

	refreshClient := client
	lifecycleOpts := append([]token.Option{
		token.WithLogger(logging.With(a.logger, "token")),
		token.WithRefresher(token.RefresherFunc(func(ctx context.Context, refreshToken string) (*oauth.TokenSet, error) {
			return a.tokenClient.Refresh(ctx, refreshToken, refreshClient)
		})),
	}, opts.LifecycleOptions...)

	return &Result{
		TokenSet:  set,
		Lifecycle: token.New(set, lifecycleOpts...),
	}, nil
}
