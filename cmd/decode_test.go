package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msauth/internal/testing/mock"
)

func mintToken(t *testing.T) string {
	t.Helper()
	server := mock.NewTokenServer(mock.TokenServerConfig{UPN: "bob@contoso.com"})
	t.Cleanup(server.Close)
	return server.MintAccessToken(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
}

func TestDecode_Table(t *testing.T) {
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := execute(cmd, []string{"decode", mintToken(t)})
	require.Equal(t, ExitCodeSuccess, code, stderr.String())

	assert.Contains(t, stderr.String(), "NOT verified")
	assert.Contains(t, stdout.String(), "bob@contoso.com")
	assert.Contains(t, stdout.String(), "2030-01-01T12:00:00Z")
	assert.Contains(t, stdout.String(), "none", "header alg")
}

func TestDecode_JSONFromStdin(t *testing.T) {
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(mintToken(t) + "\n"))

	code := execute(cmd, []string{"decode", "-", "-o", "json"})
	require.Equal(t, ExitCodeSuccess, code)

	var out decodedOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.False(t, out.Verified)
	assert.Equal(t, "none", out.Header["alg"])
	assert.Equal(t, "bob@contoso.com", out.Payload["upn"])
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{"only.two", "a.b.c.d", "!!!.e30.", "e30.bm90LWpzb24.sig"} {
		cmd := newRootCmd()
		var stderr bytes.Buffer
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&stderr)

		assert.Equal(t, ExitCodeError, execute(cmd, []string{"decode", input}), input)
		assert.Contains(t, stderr.String(), "malformed token", input)
	}
}
