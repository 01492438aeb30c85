package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() error = %v", err)
	}

	// RFC 7636 bounds the verifier to 43-128 characters
	if len(pkce.CodeVerifier) < 43 || len(pkce.CodeVerifier) > 128 {
		t.Errorf("CodeVerifier length = %d, want within [43,128]", len(pkce.CodeVerifier))
	}

	if pkce.CodeChallengeMethod != "S256" {
		t.Errorf("CodeChallengeMethod = %q, want %q", pkce.CodeChallengeMethod, "S256")
	}

	hash := sha256.Sum256([]byte(pkce.CodeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])
	if pkce.CodeChallenge != expectedChallenge {
		t.Errorf("CodeChallenge = %q, want %q", pkce.CodeChallenge, expectedChallenge)
	}

	// Verify our implementation matches the stdlib
	stdlibChallenge := oauth2.S256ChallengeFromVerifier(pkce.CodeVerifier)
	if pkce.CodeChallenge != stdlibChallenge {
		t.Errorf("CodeChallenge = %q, want stdlib result %q", pkce.CodeChallenge, stdlibChallenge)
	}
}

func TestGeneratePKCE_NoPadding(t *testing.T) {
	for i := 0; i < 20; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() error = %v", err)
		}
		if strings.ContainsAny(pkce.CodeVerifier, "=+/") {
			t.Errorf("CodeVerifier %q is not unpadded base64url", pkce.CodeVerifier)
		}
		if strings.ContainsAny(pkce.CodeChallenge, "=+/") {
			t.Errorf("CodeChallenge %q is not unpadded base64url", pkce.CodeChallenge)
		}
	}
}

func TestGeneratePKCE_Uniqueness(t *testing.T) {
	// Generate multiple PKCE challenges and ensure they're unique
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() error = %v", err)
		}

		if seen[pkce.CodeVerifier] {
			t.Error("Generated duplicate CodeVerifier")
		}
		seen[pkce.CodeVerifier] = true
	}
}

func TestS256Challenge_KnownVector(t *testing.T) {
	// Example from RFC 7636 Appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	want := "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"

	if got := S256Challenge(verifier); got != want {
		t.Errorf("S256Challenge() = %q, want %q", got, want)
	}
	if !VerifyChallenge(verifier, want) {
		t.Error("VerifyChallenge() rejected the RFC 7636 example")
	}
	if VerifyChallenge(verifier, "not-the-challenge") {
		t.Error("VerifyChallenge() accepted a wrong challenge")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}

	// Verify state length (32 bytes = 43 base64url chars)
	if len(state) != 43 {
		t.Errorf("state length = %d, want 43", len(state))
	}
}

func TestGenerateState_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("GenerateState() error = %v", err)
		}

		if seen[state] {
			t.Error("Generated duplicate state")
		}
		seen[state] = true
	}
}
