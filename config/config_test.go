package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvURL, "")
	t.Setenv(EnvLogLevel, "")
	cfg := Load(t.TempDir())
	assert.Equal(t, defaults(), cfg)
}

func TestLoadCorruptFileYieldsDefaults(t *testing.T) {
	t.Setenv(EnvURL, "")
	t.Setenv(EnvLogLevel, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte("{nope"), 0o644))
	assert.Equal(t, defaults(), Load(dir))
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(EnvURL, "")
	t.Setenv(EnvLogLevel, "")
	dir := filepath.Join(t.TempDir(), "profiles", "clinic")
	want := Config{
		Theme:              "light",
		BackendURL:         "https://api.example.test",
		SessionCookie:      "sid",
		HistoryTokenBudget: 3000,
		LogLevel:           "debug",
	}
	require.NoError(t, Save(dir, want))
	assert.Equal(t, want, Load(dir))
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, Config{BackendURL: "https://file.example.test"}))

	t.Setenv(EnvURL, "https://env.example.test/")
	t.Setenv(EnvLogLevel, "warn")
	cfg := Load(dir)
	assert.Equal(t, "https://env.example.test", cfg.BackendURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "dark", cfg.Theme)
}

func TestNegativeBudgetDisablesTrimming(t *testing.T) {
	t.Setenv(EnvURL, "")
	dir := t.TempDir()
	require.NoError(t, Save(dir, Config{HistoryTokenBudget: -5}))
	assert.Equal(t, 0, Load(dir).HistoryTokenBudget)
}

func TestProfileDir(t *testing.T) {
	t.Setenv("HOME", "/home/doc")
	assert.Equal(t, filepath.Join("/home/doc", ".vaultx"), ProfileDir(""))
	assert.Equal(t, filepath.Join("/home/doc", ".vaultx", "profiles", "night"), ProfileDir("night"))
}
