package oauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodedJWT is a compact JWS split into its parts.
//
// SECURITY: DecodeJWT does NOT verify the signature, the issuer or the
// audience. The claims in a DecodedJWT are whatever the token says about
// itself. Use them for display and scheduling (expiry, scopes), never as
// proof of identity. Validate the token against the issuer's signing keys
// before trusting any claim.
type DecodedJWT struct {
	Header    map[string]interface{}
	Payload   jwt.MapClaims
	Signature []byte
	Raw       string
}

// DecodeJWT parses a compact JWT without verifying it.
//
// The token must have exactly three dot-separated parts. Header and payload
// are base64url-decoded (padding is restored when missing) and must hold JSON
// objects. The signature is returned as raw bytes. Every failure is a
// *MalformedTokenError; partial results are never returned.
func DecodeJWT(token string) (*DecodedJWT, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, &MalformedTokenError{
			Reason: fmt.Sprintf("expected 3 segments, got %d", len(parts)),
		}
	}

	header, err := decodeJSONSegment(parts[0])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "invalid header", Err: err}
	}

	payload, err := decodeJSONSegment(parts[1])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "invalid payload", Err: err}
	}

	signature, err := decodeSegment(parts[2])
	if err != nil {
		return nil, &MalformedTokenError{Reason: "invalid signature encoding", Err: err}
	}

	return &DecodedJWT{
		Header:    header,
		Payload:   jwt.MapClaims(payload),
		Signature: signature,
		Raw:       token,
	}, nil
}

// decodeSegment restores base64 padding to a multiple of 4 and decodes the
// segment with the URL-safe alphabet.
func decodeSegment(seg string) ([]byte, error) {
	if l := len(seg) % 4; l > 0 {
		seg += strings.Repeat("=", 4-l)
	}
	return base64.URLEncoding.DecodeString(seg)
}

func decodeJSONSegment(seg string) (map[string]interface{}, error) {
	raw, err := decodeSegment(seg)
	if err != nil {
		return nil, err
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("segment is not a JSON object")
	}
	return obj, nil
}

// Algorithm returns the alg header value, if present.
func (d *DecodedJWT) Algorithm() string {
	alg, _ := d.Header["alg"].(string)
	return alg
}

// ExpiresAt returns the exp claim. The boolean is false when the claim is
// absent or not a number.
func (d *DecodedJWT) ExpiresAt() (time.Time, bool) {
	exp, err := d.Payload.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Issuer returns the iss claim.
func (d *DecodedJWT) Issuer() string {
	iss, _ := d.Payload.GetIssuer()
	return iss
}

// Subject returns the sub claim.
func (d *DecodedJWT) Subject() string {
	sub, _ := d.Payload.GetSubject()
	return sub
}

// TenantID returns the tenant identifier, which Microsoft issuers carry as
// the last path segment of iss (https://sts.windows.net/{tid}/ or
// https://login.microsoftonline.com/{tid}/v2.0). The tid claim is used when
// the issuer does not yield one.
func (d *DecodedJWT) TenantID() string {
	if iss := d.Issuer(); iss != "" {
		segments := strings.Split(strings.TrimRight(iss, "/"), "/")
		for i := len(segments) - 1; i >= 0; i-- {
			seg := segments[i]
			if seg == "" || seg == "v2.0" {
				continue
			}
			if strings.Contains(seg, ":") || i < 3 {
				break
			}
			return seg
		}
	}
	tid, _ := d.Payload["tid"].(string)
	return tid
}

// Audience returns the aud claim, which may be a single string or an array.
func (d *DecodedJWT) Audience() []string {
	aud, err := d.Payload.GetAudience()
	if err != nil {
		return nil
	}
	return aud
}

// Scope returns the space-separated scp claim of a delegated access token.
func (d *DecodedJWT) Scope() string {
	scp, _ := d.Payload["scp"].(string)
	return scp
}

// Roles returns the roles claim of an application token.
func (d *DecodedJWT) Roles() []string {
	raw, ok := d.Payload["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// UPN returns the signed-in user's principal name using the first of upn,
// unique_name and preferred_username that is set.
func (d *DecodedJWT) UPN() string {
	for _, key := range []string{"upn", "unique_name", "preferred_username"} {
		if v, ok := d.Payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
