package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"msauth/internal/config"
)

func runConfigs(t *testing.T, dir string, args ...string) (int, string) {
	t.Helper()
	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	code := execute(cmd, append([]string{"configs", "--config-path", dir}, args...))
	return code, stdout.String()
}

func TestConfigs_Table(t *testing.T) {
	code, out := runConfigs(t, t.TempDir())
	require.Equal(t, ExitCodeSuccess, code)

	for _, name := range []string{"graph", "azcli", "teams", "office"} {
		assert.Contains(t, out, name)
	}
}

func TestConfigs_IncludesFileProfiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
profiles:
  custom:
    clientId: 11111111-2222-3333-4444-555555555555
    redirectUri: https://app.contoso.com/auth
    scopes: [User.Read]
`), 0o600))

	code, out := runConfigs(t, dir, "-o", "json")
	require.Equal(t, ExitCodeSuccess, code)

	var profiles map[string]config.AppConfig
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	assert.Equal(t, "https://app.contoso.com/auth", profiles["custom"].RedirectURI)
	assert.Contains(t, profiles, "graph")
}

func TestConfigs_YAML(t *testing.T) {
	code, out := runConfigs(t, t.TempDir(), "-o", "yaml")
	require.Equal(t, ExitCodeSuccess, code)

	var profiles map[string]config.AppConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &profiles))
	assert.Equal(t, "04b07795-8ddb-461a-bbee-02f9e1bf7b46", profiles["azcli"].ClientID)
	assert.True(t, profiles["azcli"].OmitOrigin)
}

func TestConfigs_BadOutput(t *testing.T) {
	code, _ := runConfigs(t, t.TempDir(), "-o", "xml")
	assert.Equal(t, ExitCodeError, code)
}
