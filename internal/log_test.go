package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelDebug, ParseLogLevel(" DEBUG "))
	assert.Equal(t, LogLevelTrace, ParseLogLevel("TRACE"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn)

	logger.Info("hidden %d", 1)
	logger.Debug("hidden %d", 2)
	assert.Empty(t, buf.String())

	logger.Warn("shown %d", 3)
	assert.Contains(t, buf.String(), "shown 3")
}

func TestLoggerTraceBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelDebug)

	logger.Trace("too verbose")
	assert.Empty(t, buf.String())

	logger.SetLevel(LogLevelTrace)
	logger.WithPrefix("kmeans").Trace("iteration %d", 4)
	assert.Contains(t, buf.String(), "iteration 4")
	assert.Contains(t, buf.String(), "kmeans")
}
