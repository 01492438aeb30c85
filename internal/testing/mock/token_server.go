package mock

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"msauth/pkg/oauth"
)

// jwtHeader is the pre-computed base64-encoded JWT header for unsigned tokens.
// Value: base64url({"alg":"none","typ":"JWT"})
//
// SECURITY WARNING: tokens minted here are unsigned and for TESTING ONLY.
const jwtHeader = "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0"

// accessTokenClaims is the subset of Microsoft access token claims the
// stub puts into minted tokens.
type accessTokenClaims struct {
	Iss string `json:"iss"`
	Aud string `json:"aud"`
	Exp int64  `json:"exp"`
	Iat int64  `json:"iat"`
	Scp string `json:"scp,omitempty"`
	Upn string `json:"upn,omitempty"`
	Tid string `json:"tid,omitempty"`
	Sub string `json:"sub"`
}

// TokenServerConfig configures the token endpoint stub.
type TokenServerConfig struct {
	// ClientID is the expected client id. Empty accepts any.
	ClientID string

	// TokenLifetime is the expires_in of issued tokens (default 1h).
	TokenLifetime time.Duration

	// Scope is the granted scope, also used as the scp claim (default "User.Read").
	Scope string

	// Tenant goes into the issuer and tid claim (default a fixed test GUID).
	Tenant string

	// Audience is the aud claim (default https://graph.microsoft.com).
	Audience string

	// UPN is the upn claim (default test@contoso.com).
	UPN string

	// OmitRefreshToken leaves refresh_token out of responses.
	OmitRefreshToken bool

	// Clock controls exp/iat of minted tokens (defaults to RealClock).
	Clock Clock
}

// CapturedRequest is a token request as the stub received it.
type CapturedRequest struct {
	Form   url.Values
	Header http.Header
}

type simulatedFailure struct {
	status      int
	oauthError  string
	description string
}

// TokenServer is an httptest-backed stand-in for the identity platform's
// /token endpoint. It verifies PKCE for registered codes, hands out alg:none
// JWT access tokens and counts calls per grant type.
type TokenServer struct {
	*httptest.Server

	config TokenServerConfig
	clock  Clock

	mu       sync.Mutex
	codes    map[string]string // code -> S256 challenge
	failures []simulatedFailure
	requests []CapturedRequest
	gate     chan struct{}

	exchangeCalls atomic.Int32
	refreshCalls  atomic.Int32
	issued        atomic.Int32
}

// NewTokenServer starts a token endpoint stub. Callers must Close it.
func NewTokenServer(config TokenServerConfig) *TokenServer {
	if config.TokenLifetime == 0 {
		config.TokenLifetime = time.Hour
	}
	if config.Scope == "" {
		config.Scope = "User.Read"
	}
	if config.Tenant == "" {
		config.Tenant = "00000000-0000-0000-0000-0000000000aa"
	}
	if config.Audience == "" {
		config.Audience = "https://graph.microsoft.com"
	}
	if config.UPN == "" {
		config.UPN = "test@contoso.com"
	}

	clock := config.Clock
	if clock == nil {
		clock = RealClock{}
	}

	s := &TokenServer{
		config: config,
		clock:  clock,
		codes:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", s.handleToken)
	s.Server = httptest.NewServer(mux)
	return s
}

// Endpoint returns endpoints pointing at the stub.
func (s *TokenServer) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  s.URL + "/authorize",
		TokenURL: s.URL + "/token",
	}
}

// RegisterCode makes code redeemable once with the verifier matching challenge.
func (s *TokenServer) RegisterCode(code, challenge string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = challenge
}

// FailNext makes the next n token requests fail with the given status and
// OAuth error code.
func (s *TokenServer) FailNext(n, status int, oauthError string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, simulatedFailure{
			status:      status,
			oauthError:  oauthError,
			description: fmt.Sprintf("simulated failure %d", i+1),
		})
	}
}

// HoldRequests blocks token requests until the returned release func is called.
func (s *TokenServer) HoldRequests() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// ExchangeCalls returns how many authorization_code requests were received.
func (s *TokenServer) ExchangeCalls() int {
	return int(s.exchangeCalls.Load())
}

// RefreshCalls returns how many refresh_token requests were received.
func (s *TokenServer) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Requests returns all captured token requests in arrival order.
func (s *TokenServer) Requests() []CapturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CapturedRequest(nil), s.requests...)
}

// LastRequest returns the most recent token request.
func (s *TokenServer) LastRequest() (CapturedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return CapturedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *TokenServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	grantType := r.PostForm.Get("grant_type")
	switch grantType {
	case "authorization_code":
		s.exchangeCalls.Add(1)
	case "refresh_token":
		s.refreshCalls.Add(1)
	}

	s.mu.Lock()
	s.requests = append(s.requests, CapturedRequest{Form: r.PostForm, Header: r.Header.Clone()})
	gate := s.gate
	var failure *simulatedFailure
	if len(s.failures) > 0 {
		failure = &s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if failure != nil {
		writeOAuthError(w, failure.status, failure.oauthError, failure.description)
		return
	}

	if s.config.ClientID != "" && r.PostForm.Get("client_id") != s.config.ClientID {
		writeOAuthError(w, http.StatusBadRequest, "unauthorized_client", "unknown client_id")
		return
	}

	switch grantType {
	case "authorization_code":
		s.handleAuthCodeExchange(w, r)
	case "refresh_token":
		s.handleRefreshToken(w, r)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type",
			fmt.Sprintf("grant_type %s not supported", grantType))
	}
}

func (s *TokenServer) handleAuthCodeExchange(w http.ResponseWriter, r *http.Request) {
	code := r.PostForm.Get("code")

	s.mu.Lock()
	challenge, exists := s.codes[code]
	if exists {
		delete(s.codes, code)
	}
	s.mu.Unlock()

	if !exists {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "authorization code not found or expired")
		return
	}

	if challenge != "" && !oauth.VerifyChallenge(r.PostForm.Get("code_verifier"), challenge) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier verification failed")
		return
	}

	s.writeTokens(w)
}

func (s *TokenServer) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.PostForm.Get("refresh_token") == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}
	s.writeTokens(w)
}

func (s *TokenServer) writeTokens(w http.ResponseWriter) {
	n := s.issued.Add(1)
	expiresAt := s.clock.Now().Add(s.config.TokenLifetime)

	resp := oauth.TokenSet{
		AccessToken: s.MintAccessToken(expiresAt),
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.TokenLifetime.Seconds()),
		Scope:       s.config.Scope,
	}
	if !s.config.OmitRefreshToken {
		resp.RefreshToken = fmt.Sprintf("refresh-%d-%s", n, generateOpaqueToken()[:8])
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// MintAccessToken returns an unsigned JWT access token expiring at expiresAt.
func (s *TokenServer) MintAccessToken(expiresAt time.Time) string {
	claims := accessTokenClaims{
		Iss: "https://sts.windows.net/" + s.config.Tenant + "/",
		Aud: s.config.Audience,
		Exp: expiresAt.Unix(),
		Iat: s.clock.Now().Unix(),
		Scp: s.config.Scope,
		Upn: s.config.UPN,
		Tid: s.config.Tenant,
		Sub: "test-subject",
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		panic(fmt.Errorf("failed to marshal access token claims: %w", err))
	}

	// Trailing dot: no signature (alg: none)
	return fmt.Sprintf("%s.%s.", jwtHeader, base64.RawURLEncoding.EncodeToString(claimsJSON))
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// generateOpaqueToken generates a random opaque token.
// Panics if crypto/rand fails, which should never happen in practice.
func generateOpaqueToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("crypto/rand failed: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
