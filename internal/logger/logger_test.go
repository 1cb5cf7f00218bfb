package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	level := LogLevel
	DisableColors()
	Initialize(&buf, &buf, &buf, &buf)
	t.Cleanup(func() {
		LogLevel = level
		EnableColors()
		Initialize(nil, nil, nil, nil)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t)

	SetLevel(LevelWarning)
	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warningf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "WARNING: ")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "ERROR: ")
	assert.Contains(t, out, "error 4")
}

func TestSetLevelIgnoresOutOfRange(t *testing.T) {
	captureLogs(t)
	SetLevel(LevelDebug)
	SetLevel(42)
	assert.Equal(t, LevelDebug, LogLevel)
}

func TestDisableColorsKeepsWriters(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(LevelInfo)

	DisableColors()
	Infof("plain")

	assert.Contains(t, buf.String(), "INFO: ")
	assert.NotContains(t, buf.String(), colorBlue)
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]int{
		"error":   LevelError,
		"WARN":    LevelWarning,
		"warning": LevelWarning,
		"":        LevelInfo,
		" info ":  LevelInfo,
		"debug":   LevelDebug,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}
