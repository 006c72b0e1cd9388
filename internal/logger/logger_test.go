package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("also shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] also shown")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: DEBUG, Mode: MINIMAL, Output: &buf})
	require.NoError(t, err)

	l.WithComponent("notify").WithComponent("email").Info("sent")
	assert.Equal(t, "[INFO] [notify.email] sent\n", buf.String())

	buf.Reset()
	child := l.WithComponent("rules")
	l.SetLevel(ERROR)
	child.Warn("dropped")
	assert.Empty(t, buf.String(), "component loggers share the parent level")
}

func TestNormalModeIncludesTimestamp(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: INFO, Mode: NORMAL, Output: &buf})
	require.NoError(t, err)

	l.Info("hello")
	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "[INFO] "))
	assert.True(t, strings.HasSuffix(line, " | hello"))
}

func TestFullModeIncludesCaller(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: INFO, Mode: FULL, Output: &buf})
	require.NoError(t, err)

	l.Info("where")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "farm.log")
	l, err := New(Config{Level: INFO, Mode: MINIMAL, LogFilePath: path, Output: &bytes.Buffer{}})
	require.NoError(t, err)

	l.Info("persisted")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] persisted")
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing happens")
	l.Fatal("not even this")
}

func TestParse(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, FULL, ParseMode("Full"))
	assert.Equal(t, NORMAL, ParseMode(""))
	assert.Equal(t, "ERROR", ERROR.String())
}
