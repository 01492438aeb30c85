package token

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"msauth/pkg/oauth"
)

const (
	// DefaultRefreshMargin is how long before expiry the refresh loop renews tokens.
	DefaultRefreshMargin = oauth.TokenRefreshThreshold

	// DefaultMaxFailures is how many consecutive refresh failures the loop
	// tolerates before it gives up.
	DefaultMaxFailures = 10

	// DefaultAttemptTimeout bounds a single refresh attempt.
	DefaultAttemptTimeout = time.Minute

	// MinRefreshInterval is the shortest wait between two successful
	// refreshes. Tokens living no longer than the margin are renewed after
	// half their lifetime, but never sooner than this.
	MinRefreshInterval = 30 * time.Second
)

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth.TokenSet, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth.TokenSet, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (*oauth.TokenSet, error) {
	return f(ctx, refreshToken)
}

// Clock is the time source of a Lifecycle.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RefreshObserver is notified after every refresh attempt.
type RefreshObserver interface {
	ObserveRefresh(err error, expiresIn time.Duration)
}

// Lifecycle holds the current token pair and keeps it fresh.
//
// All accessors are safe for concurrent use. The token pair, expiry and
// derived claims are swapped together under one lock, so readers never see
// an access token with another token's expiry.
type Lifecycle struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	idToken      string
	tokenType    string
	scope        string
	issuedOn     time.Time
	expiresOn    time.Time
	claims       *oauth.DecodedJWT

	refresher      Refresher
	persister      Persister
	clock          Clock
	logger         *slog.Logger
	margin         time.Duration
	maxFailures    int
	attemptTimeout time.Duration
	newBackoff     func() *backoff.ExponentialBackOff
	observer       RefreshObserver

	group singleflight.Group

	loopMu   sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	loopErr  error
	failures int
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithRefresher sets the refresher used by Refresh and the refresh loop.
func WithRefresher(r Refresher) Option {
	return func(l *Lifecycle) {
		l.refresher = r
	}
}

// WithPersister sets where token snapshots are written.
func WithPersister(p Persister) Option {
	return func(l *Lifecycle) {
		l.persister = p
	}
}

// WithClock replaces the time source.
func WithClock(c Clock) Option {
	return func(l *Lifecycle) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lifecycle) {
		l.logger = logger
	}
}

// WithRefreshMargin sets how long before expiry tokens are refreshed.
func WithRefreshMargin(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.margin = d
	}
}

// WithBackoff sets the factory for the retry schedule after failed refreshes.
func WithBackoff(newBackoff func() *backoff.ExponentialBackOff) Option {
	return func(l *Lifecycle) {
		l.newBackoff = newBackoff
	}
}

// WithMaxFailures sets how many consecutive failures end the refresh loop.
func WithMaxFailures(n int) Option {
	return func(l *Lifecycle) {
		l.maxFailures = n
	}
}

// WithAttemptTimeout bounds each refresh attempt of the loop.
func WithAttemptTimeout(d time.Duration) Option {
	return func(l *Lifecycle) {
		l.attemptTimeout = d
	}
}

// WithObserver registers a refresh observer (metrics).
func WithObserver(o RefreshObserver) Option {
	return func(l *Lifecycle) {
		l.observer = o
	}
}

// DefaultBackoff returns the retry schedule used after a failed refresh:
// 5s doubling up to 5 minutes with 20% jitter.
func DefaultBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Minute
	b.RandomizationFactor = 0.2
	b.Reset()
	return b
}

// New creates a Lifecycle from a token endpoint response.
func New(set *oauth.TokenSet, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		clock:          realClock{},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		margin:         DefaultRefreshMargin,
		maxFailures:    DefaultMaxFailures,
		attemptTimeout: DefaultAttemptTimeout,
		newBackoff:     DefaultBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.maxFailures < 1 {
		l.maxFailures = 1
	}

	l.apply(set, false)
	return l
}

// apply installs a token set. With keepRefreshToken, an empty refresh token
// in set keeps the current one.
func (l *Lifecycle) apply(set *oauth.TokenSet, keepRefreshToken bool) {
	now := l.clock.Now()

	claims, err := oauth.DecodeJWT(set.AccessToken)
	if err != nil {
		// Opaque access tokens (e.g. personal accounts) carry no claims.
		l.logger.Debug("Access token is not a JWT", "error", err)
		claims = nil
	}

	expiresOn := now.Add(time.Duration(set.ExpiresIn) * time.Second)
	if set.ExpiresIn <= 0 {
		expiresOn = now
		if claims != nil {
			if exp, ok := claims.ExpiresAt(); ok {
				expiresOn = exp
			}
		}
	}

	scope := set.Scope
	if claims != nil && claims.Scope() != "" {
		scope = claims.Scope()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.accessToken = set.AccessToken
	if set.RefreshToken != "" || !keepRefreshToken {
		l.refreshToken = set.RefreshToken
	}
	l.idToken = set.IDToken
	l.tokenType = set.TokenType
	l.scope = scope
	l.issuedOn = now
	l.expiresOn = expiresOn
	l.claims = claims
}

// AccessToken returns the current access token.
func (l *Lifecycle) AccessToken() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accessToken
}

// RefreshToken returns the current refresh token.
func (l *Lifecycle) RefreshToken() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.refreshToken
}

// Scope returns the scope of the current access token: its scp claim when
// present, the scope of the token response otherwise.
func (l *Lifecycle) Scope() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.scope
}

// Scopes returns Scope split on whitespace.
func (l *Lifecycle) Scopes() []string {
	return strings.Fields(l.Scope())
}

// ExpiresOn returns the absolute expiry of the current access token.
func (l *Lifecycle) ExpiresOn() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.expiresOn
}

// Claims returns the unverified claims of the access token, or nil for
// opaque tokens.
func (l *Lifecycle) Claims() *oauth.DecodedJWT {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claims
}

// ExpiresIn returns the remaining lifetime, never negative.
func (l *Lifecycle) ExpiresIn() time.Duration {
	remaining := l.ExpiresOn().Sub(l.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// lifetime returns how long the current access token was valid when it was
// installed.
func (l *Lifecycle) lifetime() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.expiresOn.Before(l.issuedOn) {
		return 0
	}
	return l.expiresOn.Sub(l.issuedOn)
}

// ExpiresInSeconds returns the remaining lifetime in whole seconds.
func (l *Lifecycle) ExpiresInSeconds() int64 {
	return int64(l.ExpiresIn() / time.Second)
}

// IsExpired reports whether the access token has expired.
func (l *Lifecycle) IsExpired() bool {
	return l.ExpiresIn() <= 0
}

// Snapshot returns a consistent copy of the current token state.
func (l *Lifecycle) Snapshot() Snapshot {
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Snapshot{
		AccessToken:  l.accessToken,
		RefreshToken: l.refreshToken,
		IDToken:      l.idToken,
		TokenType:    l.tokenType,
		Scope:        l.scope,
		ExpiresOn:    l.expiresOn,
	}
	if remaining := l.expiresOn.Sub(now); remaining > 0 {
		s.ExpiresIn = int64(remaining / time.Second)
	}
	if l.claims != nil {
		s.TenantID = l.claims.TenantID()
		s.Audience = l.claims.Audience()
		s.UPN = l.claims.UPN()
	}
	return s
}

// Token implements oauth2.TokenSource. It returns the current token without
// refreshing; the refresh loop or Refresh keep it current.
func (l *Lifecycle) Token() (*oauth2.Token, error) {
	s := l.Snapshot()
	if s.AccessToken == "" {
		return nil, errors.New("no access token available")
	}

	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    tokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.ExpiresOn,
	}
	if s.IDToken != "" {
		token = token.WithExtra(map[string]interface{}{"id_token": s.IDToken})
	}
	return token, nil
}

// Persist writes the current state through the configured persister.
// Without a persister it does nothing.
func (l *Lifecycle) Persist(ctx context.Context) error {
	if l.persister == nil {
		return nil
	}

	if err := l.persister.Save(ctx, l.Snapshot()); err != nil {
		return &oauth.PersistenceError{Location: l.persister.Location(), Err: err}
	}

	// SECURITY_AUDIT: token values are never logged
	l.logger.Info("SECURITY_AUDIT: tokens persisted",
		"location", l.persister.Location(),
		"expires_on", l.ExpiresOn().Format(time.RFC3339))
	return nil
}

// Refresh performs one refresh. Concurrent calls share a single request.
// On success the token pair, expiry and claims are replaced together and the
// new state is persisted; a persistence failure is logged and does not fail
// the refresh.
func (l *Lifecycle) Refresh(ctx context.Context) error {
	if l.refresher == nil {
		return errors.New("no refresher configured")
	}

	_, err, shared := l.group.Do("refresh", func() (interface{}, error) {
		return nil, l.doRefresh(ctx)
	})
	if shared {
		l.logger.Debug("Joined in-flight token refresh")
	}
	return err
}

func (l *Lifecycle) doRefresh(ctx context.Context) error {
	refreshToken := l.RefreshToken()
	if refreshToken == "" {
		return oauth.ErrMissingRefreshToken
	}

	set, err := l.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	l.apply(set, true)
	l.logger.Info("Access token refreshed",
		"expires_on", l.ExpiresOn().Format(time.RFC3339),
		"scope", l.Scope())

	if err := l.Persist(ctx); err != nil {
		l.logger.Warn("Refreshed tokens could not be persisted; keeping them in memory",
			"error", err)
	}
	return nil
}
