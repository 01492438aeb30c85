package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msauth/internal/testing/mock"
	"msauth/pkg/oauth"
)

var testStart = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv returns a mock clock, a token endpoint stub and a refresher
// that talks to it with the default refresh client.
func newTestEnv(t *testing.T, config mock.TokenServerConfig) (*mock.MockClock, *mock.TokenServer, Refresher) {
	t.Helper()

	clock := mock.NewMockClock(testStart)
	config.Clock = clock
	server := mock.NewTokenServer(config)
	t.Cleanup(server.Close)

	client := oauth.NewClient(
		oauth.WithHTTPClient(server.Client()),
		oauth.WithEndpoint(server.Endpoint()),
	)
	refresher := RefresherFunc(func(ctx context.Context, refreshToken string) (*oauth.TokenSet, error) {
		return client.Refresh(ctx, refreshToken, oauth.ClientConfig{})
	})
	return clock, server, refresher
}

type failingPersister struct{}

func (failingPersister) Save(context.Context, Snapshot) error { return errors.New("disk full") }
func (failingPersister) Location() string                     { return "nowhere" }

type recordingObserver struct {
	mu   sync.Mutex
	errs []error
}

func (o *recordingObserver) ObserveRefresh(err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) calls() []error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]error(nil), o.errs...)
}

func TestNew_ExpiryFromExpiresIn(t *testing.T) {
	clock := mock.NewMockClock(testStart)
	lc := New(&oauth.TokenSet{AccessToken: "opaque", ExpiresIn: 3600}, WithClock(clock))

	assert.Equal(t, testStart.Add(time.Hour), lc.ExpiresOn())
	assert.Equal(t, time.Hour, lc.ExpiresIn())
	assert.Equal(t, int64(3600), lc.ExpiresInSeconds())
	assert.Nil(t, lc.Claims(), "opaque token has no claims")
}

func TestNew_ExpiryFromClaim(t *testing.T) {
	clock, server, _ := newTestEnv(t, mock.TokenServerConfig{})
	exp := testStart.Add(90 * time.Minute)

	lc := New(&oauth.TokenSet{AccessToken: server.MintAccessToken(exp)}, WithClock(clock))

	assert.Equal(t, exp.Unix(), lc.ExpiresOn().Unix())
	assert.Equal(t, int64(90*60), lc.ExpiresInSeconds())
}

func TestNew_ScopePrefersClaim(t *testing.T) {
	clock, server, _ := newTestEnv(t, mock.TokenServerConfig{Scope: "Mail.Read User.Read"})

	lc := New(&oauth.TokenSet{
		AccessToken: server.MintAccessToken(testStart.Add(time.Hour)),
		Scope:       "https://graph.microsoft.com/.default",
		ExpiresIn:   3600,
	}, WithClock(clock))
	assert.Equal(t, "Mail.Read User.Read", lc.Scope())
	assert.Equal(t, []string{"Mail.Read", "User.Read"}, lc.Scopes())

	opaque := New(&oauth.TokenSet{AccessToken: "opaque", Scope: "openid profile", ExpiresIn: 3600}, WithClock(clock))
	assert.Equal(t, "openid profile", opaque.Scope())
}

func TestExpiresIn_NonIncreasingAndClamped(t *testing.T) {
	clock := mock.NewMockClock(testStart)
	lc := New(&oauth.TokenSet{AccessToken: "opaque", ExpiresIn: 60}, WithClock(clock))

	previous := lc.ExpiresIn()
	for i := 0; i < 10; i++ {
		clock.Advance(10 * time.Second)
		current := lc.ExpiresIn()
		assert.LessOrEqual(t, current, previous)
		assert.GreaterOrEqual(t, current, time.Duration(0))
		previous = current
	}

	assert.Equal(t, time.Duration(0), lc.ExpiresIn())
	assert.Equal(t, int64(0), lc.ExpiresInSeconds())
	assert.True(t, lc.IsExpired())
	assert.Equal(t, int64(0), lc.Snapshot().ExpiresIn)
}

func TestExpiresIn_RealClock(t *testing.T) {
	lc := New(&oauth.TokenSet{AccessToken: "opaque", ExpiresIn: 3600})

	first := lc.ExpiresIn()
	second := lc.ExpiresIn()
	assert.LessOrEqual(t, second, first)
	assert.False(t, lc.IsExpired())
}

func TestSnapshot_DerivedClaims(t *testing.T) {
	clock, server, _ := newTestEnv(t, mock.TokenServerConfig{Tenant: "tenant-1", UPN: "alice@contoso.com"})

	lc := New(&oauth.TokenSet{
		AccessToken:  server.MintAccessToken(testStart.Add(time.Hour)),
		RefreshToken: "rt",
		ExpiresIn:    3600,
	}, WithClock(clock))

	s := lc.Snapshot()
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, "tenant-1", s.TenantID)
	assert.Equal(t, "alice@contoso.com", s.UPN)
	assert.Equal(t, []string{"https://graph.microsoft.com"}, s.Audience)
	assert.Equal(t, int64(3600), s.ExpiresIn)
}

func TestToken_TokenSource(t *testing.T) {
	clock := mock.NewMockClock(testStart)
	lc := New(&oauth.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 600, IDToken: "idt"}, WithClock(clock))

	tok, err := lc.Token()
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, testStart.Add(10*time.Minute), tok.Expiry)
	assert.Equal(t, "idt", tok.Extra("id_token"))

	_, err = New(&oauth.TokenSet{}).Token()
	assert.Error(t, err)
}

func TestRefresh_MissingRefreshToken(t *testing.T) {
	clock, server, refresher := newTestEnv(t, mock.TokenServerConfig{})
	lc := New(&oauth.TokenSet{AccessToken: "at", ExpiresIn: 3600}, WithClock(clock), WithRefresher(refresher))

	err := lc.Refresh(context.Background())
	assert.ErrorIs(t, err, oauth.ErrMissingRefreshToken)
	assert.Equal(t, 0, server.RefreshCalls(), "no request without a refresh token")
	assert.Equal(t, "at", lc.AccessToken())
}

func TestRefresh_NoRefresher(t *testing.T) {
	lc := New(&oauth.TokenSet{AccessToken: "at", RefreshToken: "rt"})
	assert.Error(t, lc.Refresh(context.Background()))
}

func TestRefresh_SwapsTokens(t *testing.T) {
	clock, server, refresher := newTestEnv(t, mock.TokenServerConfig{TokenLifetime: 2 * time.Hour})
	lc := New(&oauth.TokenSet{AccessToken: "old-at", RefreshToken: "old-rt", ExpiresIn: 60},
		WithClock(clock), WithRefresher(refresher))

	require.NoError(t, lc.Refresh(context.Background()))

	assert.NotEqual(t, "old-at", lc.AccessToken())
	assert.NotEqual(t, "old-rt", lc.RefreshToken())
	assert.Equal(t, 2*time.Hour, lc.ExpiresIn())
	require.NotNil(t, lc.Claims())
	assert.Equal(t, lc.AccessToken(), lc.Claims().Raw, "claims belong to the current access token")
	assert.Equal(t, 1, server.RefreshCalls())

	last, ok := server.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "old-rt", last.Form.Get("refresh_token"))
}

func TestRefresh_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	clock, _, refresher := newTestEnv(t, mock.TokenServerConfig{OmitRefreshToken: true})
	lc := New(&oauth.TokenSet{AccessToken: "old-at", RefreshToken: "keep-me", ExpiresIn: 60},
		WithClock(clock), WithRefresher(refresher))

	require.NoError(t, lc.Refresh(context.Background()))
	assert.NotEqual(t, "old-at", lc.AccessToken())
	assert.Equal(t, "keep-me", lc.RefreshToken())
}

func TestRefresh_PersistFailureKeepsToken(t *testing.T) {
	clock, _, refresher := newTestEnv(t, mock.TokenServerConfig{})
	lc := New(&oauth.TokenSet{AccessToken: "old-at", RefreshToken: "rt", ExpiresIn: 60},
		WithClock(clock), WithRefresher(refresher), WithPersister(failingPersister{}))

	require.NoError(t, lc.Refresh(context.Background()))
	assert.NotEqual(t, "old-at", lc.AccessToken())

	err := lc.Persist(context.Background())
	var persistErr *oauth.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "nowhere", persistErr.Location)
}

func TestRefresh_ConcurrentCallsShareRequest(t *testing.T) {
	clock, server, refresher := newTestEnv(t, mock.TokenServerConfig{})
	lc := New(&oauth.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 60},
		WithClock(clock), WithRefresher(refresher))

	release := server.HoldRequests()
	defer release()

	const callers = 5
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() { errs <- lc.Refresh(context.Background()) }()
	}

	require.Eventually(t, func() bool { return server.RefreshCalls() == 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	release()

	for i := 0; i < callers; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Equal(t, 1, server.RefreshCalls())
}

func TestPersist_NoPersister(t *testing.T) {
	lc := New(&oauth.TokenSet{AccessToken: "at"})
	assert.NoError(t, lc.Persist(context.Background()))
}
