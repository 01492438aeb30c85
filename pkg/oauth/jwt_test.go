package oauth

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestDecodeJWT_EmptyHeaderRoundTrip(t *testing.T) {
	exp := int64(1893456000)
	token := segment(`{}`) + "." + segment(`{"exp":1893456000}`) + "." + segment("sig")

	decoded, err := DecodeJWT(token)
	require.NoError(t, err)

	assert.Empty(t, decoded.Header)
	got, ok := decoded.ExpiresAt()
	require.True(t, ok)
	assert.Equal(t, exp, got.Unix())
	assert.Equal(t, []byte("sig"), decoded.Signature)
	assert.Equal(t, token, decoded.Raw)
}

func TestDecodeJWT_SignedToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	claims := jwt.MapClaims{
		"iss": "https://sts.windows.net/72f988bf-86f1-41af-91ab-2d7cd011db47/",
		"aud": "https://graph.microsoft.com",
		"exp": expiry.Unix(),
		"scp": "User.Read Mail.Read",
		"upn": "alice@contoso.com",
		"sub": "subject-1",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)

	decoded, err := DecodeJWT(signed)
	require.NoError(t, err)

	assert.Equal(t, "HS256", decoded.Algorithm())
	assert.Equal(t, "72f988bf-86f1-41af-91ab-2d7cd011db47", decoded.TenantID())
	assert.Equal(t, []string{"https://graph.microsoft.com"}, decoded.Audience())
	assert.Equal(t, "User.Read Mail.Read", decoded.Scope())
	assert.Equal(t, "alice@contoso.com", decoded.UPN())
	assert.Equal(t, "subject-1", decoded.Subject())
	assert.Len(t, decoded.Signature, 32) // HMAC-SHA256

	got, ok := decoded.ExpiresAt()
	require.True(t, ok)
	assert.True(t, got.Equal(expiry))
}

func TestDecodeJWT_PaddedSegments(t *testing.T) {
	// Padded base64 must decode the same as unpadded
	header := base64.URLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payload := base64.URLEncoding.EncodeToString([]byte(`{"scp":"a"}`))

	decoded, err := DecodeJWT(header + "." + payload + ".")
	require.NoError(t, err)
	assert.Equal(t, "none", decoded.Algorithm())
	assert.Equal(t, "a", decoded.Scope())
	assert.Empty(t, decoded.Signature)
}

func TestDecodeJWT_Malformed(t *testing.T) {
	valid := segment(`{"alg":"none"}`)

	tests := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"one segment", valid},
		{"two segments", valid + "." + valid},
		{"four segments", valid + "." + valid + "." + valid + "." + valid},
		{"bad base64 header", "!!!." + valid + ".sig"},
		{"bad base64 payload", valid + ".%%%.sig"},
		{"impossible base64 length", valid + ".abcde.sig"},
		{"header not json", segment("not json") + "." + valid + ".sig"},
		{"payload not json", valid + "." + segment("{broken") + ".sig"},
		{"payload json array", valid + "." + segment(`[1,2]`) + ".sig"},
		{"payload json null", valid + "." + segment(`null`) + ".sig"},
		{"bad signature encoding", valid + "." + valid + ".@@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeJWT(tt.token)
			require.Error(t, err)
			assert.Nil(t, decoded, "no partial result on failure")

			var malformed *MalformedTokenError
			assert.True(t, errors.As(err, &malformed), "expected MalformedTokenError, got %T", err)
		})
	}
}

func TestDecodedJWT_TenantID(t *testing.T) {
	tests := []struct {
		name   string
		claims string
		want   string
	}{
		{"v1 issuer", `{"iss":"https://sts.windows.net/tenant-a/"}`, "tenant-a"},
		{"v2 issuer", `{"iss":"https://login.microsoftonline.com/tenant-b/v2.0"}`, "tenant-b"},
		{"tid fallback", `{"iss":"https://example.com","tid":"tenant-c"}`, "tenant-c"},
		{"nothing", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeJWT(segment(`{}`) + "." + segment(tt.claims) + ".")
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded.TenantID())
		})
	}
}

func TestDecodedJWT_MissingClaims(t *testing.T) {
	decoded, err := DecodeJWT(segment(`{}`) + "." + segment(`{"aud":["a","b"],"roles":["Reader"]}`) + ".")
	require.NoError(t, err)

	_, ok := decoded.ExpiresAt()
	assert.False(t, ok)
	assert.Equal(t, "", decoded.Scope())
	assert.Equal(t, "", decoded.UPN())
	assert.Equal(t, []string{"a", "b"}, decoded.Audience())
	assert.Equal(t, []string{"Reader"}, decoded.Roles())
}
