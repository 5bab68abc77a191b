package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, c, err := New(Options{Level: "info", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)
	assert.Nil(t, c)

	l.With("component", "shell").Info("analysis applied", "request_id", "r1")
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "analysis applied", rec["msg"])
	assert.Equal(t, "shell", rec["component"])
	assert.Equal(t, "r1", rec["request_id"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Options{Level: "debug", Format: FormatText, Output: &buf})
	require.NoError(t, err)

	l.Debug("capture received", "frame_len", 42)
	assert.Contains(t, buf.String(), "capture received")
	assert.Contains(t, buf.String(), "42")
}

func TestUnknownFormat(t *testing.T) {
	_, _, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.log")
	var buf bytes.Buffer
	l, c, err := New(Options{Level: "warn", Format: FormatText, File: path, Output: &buf})
	require.NoError(t, err)
	require.NotNil(t, c)

	l.Info("dropped")
	l.Warn("capture unavailable", "error", "no device")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"capture unavailable"`)
	assert.Contains(t, buf.String(), "capture unavailable")
}

func TestFileOutputKeepsAttrs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.log")
	var buf bytes.Buffer
	l, c, err := New(Options{Format: FormatJSON, File: path, Output: &buf})
	require.NoError(t, err)

	l.With("component", "analysis").Info("analysis failed", "retryable", true)
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, out := range []string{string(data), buf.String()} {
		assert.Contains(t, out, `"component":"analysis"`)
		assert.Contains(t, out, `"retryable":true`)
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		Close()
	})

	var buf bytes.Buffer
	require.NoError(t, Init(Options{Format: FormatJSON, Output: &buf}))
	L().Info("server started", "port", "8080")
	slog.Info("via default")

	out := buf.String()
	assert.Contains(t, out, "server started")
	assert.Contains(t, out, "via default")
	assert.NoError(t, Close())
}
