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
)

func resetLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("INFO")
	SetFormat("text")
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("INFO")
		SetFormat("text")
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := resetLogger(t)
	SetLevel("WARN")

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN] warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	resetLogger(t)
	SetLevel("debug")
	SetLevel("verbose")
	assert.True(t, IsEnabled(LevelDebug))
}

func TestJSONFormat(t *testing.T) {
	buf := resetLogger(t)
	SetFormat("json")

	Info("accepted fd=%d", 7)

	line := strings.TrimSpace(buf.String())
	var entry map[string]string
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "accepted fd=7", entry["msg"])
	assert.NotEmpty(t, entry["time"])
}

func TestConfigureFileOutput(t *testing.T) {
	resetLogger(t)
	path := filepath.Join(t.TempDir(), "restd.log")

	require.NoError(t, Configure("DEBUG", "text", path))
	Debug("written to file")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] written to file")
}

func TestConfigureBadPath(t *testing.T) {
	resetLogger(t)
	err := Configure("INFO", "text", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}
