package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LogLevelTrace, ParseLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(LogLevelInfo, &buf).With("scheduler")

	logger.Debug("hidden %d", 1)
	logger.Info("block %d done", 3)
	logger.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] [scheduler] block 3 done")
	assert.Contains(t, out, "[ERROR] [scheduler] boom")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, DefaultLogger, OrDefault(nil))
	l := NewLogger(LogLevelWarn)
	assert.Same(t, l, OrDefault(l))
}
