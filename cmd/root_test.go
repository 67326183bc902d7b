//go:build !integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no config.yaml or
// .env is picked up, and resets the global config afterwards.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	origCfg := cfg
	t.Cleanup(func() {
		os.Chdir(origDir) //nolint:errcheck
		cfg = origCfg
	})
	return dir
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"evaluate", "evaluations", "site", "questions", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "feasibility-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSiteCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range siteCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"import", "show", "list"} {
		assert.True(t, names[name], "site should have subcommand %q", name)
	}
}

func TestEvaluateCommand_Flags(t *testing.T) {
	for _, name := range []string{"requirements", "questions", "site", "profile", "protocol", "override", "no-judge", "no-save", "json", "metrics-file"} {
		assert.NotNil(t, evaluateCmd.Flags().Lookup(name), "evaluate should have --%s flag", name)
	}

	req := evaluateCmd.Flags().Lookup("requirements")
	require.NotNil(t, req)
	assert.Equal(t, "r", req.Shorthand)
	assert.Equal(t, []string{"true"}, req.Annotations[cobra.BashCompOneRequiredFlag])
}

func TestEvaluationsListCommand_Flags(t *testing.T) {
	flag := evaluationsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "evaluations list should have --limit flag")
	assert.Equal(t, "50", flag.DefValue)
}

func TestPersistentPreRunE_LoadsConfig(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
store:
  database_url: custom.db
log:
  level: debug
  format: console
`), 0o644))

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "custom.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestPersistentPreRunE_InvalidConfig(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestPersistentPreRunE_BadLogLevel(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: shouting\n"), 0o644))

	err := rootCmd.PersistentPreRunE(rootCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}
