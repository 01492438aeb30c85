package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 64 bytes encode to an 86 character verifier, inside the 43-128 range of RFC 7636.
	pkceVerifierBytes = 64

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters.
	stateBytes = 32

	// CodeChallengeMethodS256 is the only challenge method msauth sends.
	CodeChallengeMethodS256 = "S256"
)

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
// It is generated once per authentication attempt and never reused.
type PKCEChallenge struct {
	// CodeVerifier is the cryptographically random string, base64url-encoded.
	// This is kept secret and only sent to the token endpoint.
	CodeVerifier string

	// CodeChallenge is the SHA256 hash of the verifier (base64url-encoded).
	// This is sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The code verifier is 64 random bytes, base64url-encoded without padding.
// The code challenge is the S256 (SHA256) hash of the verifier.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       S256Challenge(verifier),
		CodeChallengeMethod: CodeChallengeMethodS256,
	}, nil
}

// S256Challenge derives the S256 code challenge for a verifier:
// base64url(SHA256(verifier)) with no padding.
func S256Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// VerifyChallenge reports whether challenge is the S256 challenge of verifier.
func VerifyChallenge(verifier, challenge string) bool {
	expected := S256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

// GenerateState generates a random state parameter for OAuth.
// The state is used to prevent CSRF attacks and link the authorization
// response back to the original request.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
