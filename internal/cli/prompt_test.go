package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  error
	}{
		{"  eyJhbGciOi.abc \n", "eyJhbGciOi.abc", nil},
		{`"quoted"`, "quoted", nil},
		{"x-ms-RefreshTokenCredential=eyJ.x.y", "eyJ.x.y", nil},
		{"other=value", "other=value", nil},
		{"   ", "", ErrEmptySecret},
		{`""`, "", ErrEmptySecret},
	}

	for _, tt := range tests {
		got, err := normalizeSecret(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.err, err, tt.in)
	}
}
