package commands

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRootSubcommands(t *testing.T) {
	var names []string
	for _, c := range GetRootCmd().Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"start", "status", "token", "version", "config", "events", "completion"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "picopot dev")
	assert.Contains(t, out, "commit: none")
}

func TestConfigInitValidateAndToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out := execute(t, "config", "init", "--config", path)
	assert.Contains(t, out, "Configuration file created at: "+path)

	out = execute(t, "config", "validate", "--config", path)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "TELNET port:     2323")
	assert.Contains(t, out, "credentials are the built-in admin/password pair")
	assert.NotContains(t, out, "jwt_secret not set")

	out = execute(t, "token", "--config", path, "--subject", "test")
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n`, out)
}
