package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewWritesToProfileFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")
	log, err := New(dir, "warn", false)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", zap.String("case", "c1"))
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"case":"c1"`)
}

func TestVerboseForcesDebug(t *testing.T) {
	dir := t.TempDir()
	log, err := New(dir, "error", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
