package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthql/synthql/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel}, // default
		{"", InfoLevel},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "UNKNOWN", Level(999).String())
}

func TestNewLoggerStderr(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{
		Level:  "debug",
		Format: "json",
		Output: "stderr",
	})
	require.NoError(t, err)

	assert.Equal(t, DebugLevel, logger.level)
	assert.Equal(t, os.Stderr, logger.output)
	assert.True(t, logger.showCaller)
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "test.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
		File:   logFile,
	})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
}

func TestNewLoggerFileRequiresPath(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "file",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log file path is required")
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "teletype",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log output")
}

func newBufferLogger(level Level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	return &Logger{
		level:  level,
		format: format,
		output: &buf,
		fields: make(map[string]interface{}),
	}, &buf
}

func TestLoggerWithField(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.WithField("table", "hr.Employee").Info("ingested")

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ingested", entry.Message)
	assert.Equal(t, "hr.Employee", entry.Fields["table"])
}

func TestLoggerWithFieldDoesNotMutateParent(t *testing.T) {
	logger, _ := newBufferLogger(InfoLevel, "json")

	child := logger.WithField("key", "value")

	assert.Empty(t, logger.fields)
	assert.Equal(t, "value", child.fields["key"])
}

func TestLoggerWithError(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.WithError(assert.AnError).Warn("save retried")

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, assert.AnError.Error(), entry.Fields["error"])

	// Nil error returns the same logger
	same := logger.WithError(nil)
	assert.Equal(t, logger, same)
}

func TestLoggerLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(WarnLevel, "json")

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var warnEntry Entry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &warnEntry))
	assert.Equal(t, "WARN", warnEntry.Level)
}

func TestLoggerFormattedMessages(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.Infof("embedded %d of %d tables", 3, 5)

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "embedded 3 of 5 tables", entry.Message)
}

func TestLoggerErrorWithErr(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "json")

	logger.ErrorWithErr("persistence failed", assert.AnError)

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "persistence failed", entry.Message)
	assert.Equal(t, assert.AnError.Error(), entry.Error)
}

func TestLoggerTextFormat(t *testing.T) {
	logger, buf := newBufferLogger(InfoLevel, "text")
	logger.fields["key"] = "value"

	logger.Info("text output")

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "text output")
	assert.Contains(t, output, "key=value")
}

func TestGetLoggerFallsBack(t *testing.T) {
	globalLogger = nil

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Equal(t, InfoLevel, logger.level)
}
