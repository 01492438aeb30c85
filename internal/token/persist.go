package token

import (
	"context"
	"encoding/json"
	"time"
)

// Persister stores token snapshots outside the process.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error

	// Location describes where snapshots go, for logs and errors.
	Location() string
}

// Snapshot is a consistent copy of a Lifecycle's state.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	ExpiresOn    time.Time

	// ExpiresIn is the remaining lifetime in seconds when the snapshot was taken.
	ExpiresIn int64

	// Derived from the unverified access token claims.
	TenantID string
	Audience []string
	UPN      string
}

// roadtoolsFile is the .roadtools_auth layout understood by ROADtools and
// compatible tooling.
type roadtoolsFile struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// MarshalRoadtools encodes a snapshot in the roadtools format with 4-space
// indentation.
func MarshalRoadtools(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(roadtoolsFile{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}, "", "    ")
}
