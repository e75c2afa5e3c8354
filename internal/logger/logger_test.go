package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/internal/config"
)

// TestNew tests creating a logger
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{name: "json to stdout", cfg: config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}},
		{name: "text to stderr", cfg: config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}},
		{name: "empty output", cfg: config.LoggingConfig{Level: "warn", Format: "text"}},
		{name: "invalid level", cfg: config.LoggingConfig{Level: "loud", Format: "json"}, wantErr: true},
		{name: "invalid format", cfg: config.LoggingConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

// TestFileOutput tests logging to a file
func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hub.log")
	l, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.With("component", "hub").Info("module ready", "module_id", "employees")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "module ready", record["msg"])
	assert.Equal(t, "hub", record["component"])
	assert.Equal(t, "employees", record["module_id"])
}

// TestSetLevelAppliesToDerivedLoggers tests level changes on derived loggers
func TestSetLevelAppliesToDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	root, err := NewWithWriter(&buf, "text", LevelInfo)
	require.NoError(t, err)
	child := root.With("component", "navsync")

	child.Debug("hidden")
	assert.Empty(t, buf.String())

	root.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, child.GetLevel())
	assert.True(t, child.Enabled(LevelDebug))

	child.Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "visible"))
	assert.True(t, strings.Contains(buf.String(), "component=navsync"))
}

// TestParseLevel tests level parsing
func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"":        LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

// TestGlobal tests the global logger
func TestGlobal(t *testing.T) {
	prev := Global()
	t.Cleanup(func() { SetGlobal(prev) })

	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "text", LevelInfo)
	require.NoError(t, err)
	SetGlobal(l)

	assert.Same(t, l, Global())
	assert.Same(t, l, OrGlobal(nil))

	other := Discard()
	assert.Same(t, other, OrGlobal(other))

	Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "hello")
}
