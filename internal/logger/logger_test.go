package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewego-bot/internal/config"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn", false)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "user", 42)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "user=42")
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "info", true)
	require.NoError(t, err)

	l.Info("tracked", "habit", 7)

	assert.Contains(t, buf.String(), `"msg":"tracked"`)
	assert.Contains(t, buf.String(), `"habit":7`)
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, "loud", false)
	assert.Error(t, err)
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	cfg := &config.Config{LogLevel: "info", LogFile: path, Environment: "production"}

	l, err := New(cfg)
	require.NoError(t, err)

	l.Info("started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}
