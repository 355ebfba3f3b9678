package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseLevel(tc.in), "level %q", tc.in)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", LogLevel(99).String())
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := New(LevelWarn, path, false)
	require.NoError(t, err)

	l.Debug("dropped message %d", 1)
	l.Info("also dropped")
	l.Warn("kept warning %s", "here")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "[WARN] kept warning here")
}

func TestPreserveAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	first, err := New(LevelInfo, path, false)
	require.NoError(t, err)
	first.Info("first run")
	require.NoError(t, first.Close())

	second, err := New(LevelInfo, path, true)
	require.NoError(t, err)
	second.Info("second run")
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestTruncateWithoutPreserve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	first, err := New(LevelInfo, path, false)
	require.NoError(t, err)
	first.Info("stale line")
	require.NoError(t, first.Close())

	second, err := New(LevelInfo, path, false)
	require.NoError(t, err)
	second.Info("fresh line")
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale line")
	assert.Contains(t, string(data), "fresh line")
}

func TestPackageFunctionsNoopBeforeInit(t *testing.T) {
	prev := defaultLogger
	defaultLogger = nil
	t.Cleanup(func() { defaultLogger = prev })

	// Must not panic.
	Debug("d")
	Info("i")
	Warn("w")
	Error("e")
	assert.NoError(t, Close())
}
