package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/logger"
	"github.com/PersonaPass-ID/persona-wallet-sub004/pkg/utilities/timeutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   logger.LoggerConfig
		expected zerolog.Level
	}{
		{
			name:     "Default log level when no level specified",
			config:   logger.LoggerConfig{LogLevel: zerolog.NoLevel},
			expected: zerolog.InfoLevel,
		},
		{
			name:     "Debug log level",
			config:   logger.LoggerConfig{LogLevel: zerolog.DebugLevel},
			expected: zerolog.DebugLevel,
		},
		{
			name:     "Error log level",
			config:   logger.LoggerConfig{LogLevel: zerolog.ErrorLevel},
			expected: zerolog.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := logger.NewFromConfig(tt.config)
			if l == nil {
				t.Fatal("Expected logger to be created, got nil")
			}
			assert.Equal(t, tt.expected, l.Level())
		})
	}
}

func TestLoggerWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New().WithOutput(&buf).WithLevel(zerolog.ErrorLevel)

	l.Info("info message")
	l.Error(errors.New("test error"), "error message")

	output := buf.String()
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, "test error")
}

func TestLoggerFormattedLevels(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New().WithOutput(&buf).WithLevel(zerolog.DebugLevel)

	l.Debugf("debug message with %s", "formatting")
	l.Infof("info message with %d items", 5)
	l.Warnf("warning message with %s", "details")
	l.Logf(zerolog.InfoLevel, "custom level message with %d", 42)

	output := buf.String()
	assert.Contains(t, output, "debug message with formatting")
	assert.Contains(t, output, "info message with 5 items")
	assert.Contains(t, output, "warning message with details")
	assert.Contains(t, output, "custom level message with 42")
	assert.Contains(t, output, `"level":"warn"`)
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New().WithOutput(&buf).WithComponent("verifier")

	l.Info("component message")

	var logEntry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &logEntry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	assert.Equal(t, "verifier", logEntry["component"])
	assert.Equal(t, "component message", logEntry["message"])
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New().WithOutput(&buf).WithLevel(zerolog.InfoLevel)

	type sinkEntry struct {
		msg   string
		level zerolog.Level
	}
	var received []sinkEntry
	logger.AddSinkToLoggerInstance(l, func(msg string, level zerolog.Level, _ timeutil.TimeUTC) {
		received = append(received, sinkEntry{msg: msg, level: level})
	})

	l.Debug("filtered")
	l.Infof("proof %s verified", "p-1")
	l.Error(errors.New("boom"), "ledger failure")

	if len(received) != 2 {
		t.Fatalf("Expected 2 sink entries, got %d", len(received))
	}
	assert.Equal(t, "proof p-1 verified", received[0].msg)
	assert.Equal(t, zerolog.InfoLevel, received[0].level)
	assert.Equal(t, zerolog.ErrorLevel, received[1].level)
}

func TestLoggerConfigConvertToDomain(t *testing.T) {
	tests := []struct {
		name     string
		config   logger.LoggerConfigJson
		expected zerolog.Level
	}{
		{name: "empty level", config: logger.LoggerConfigJson{}, expected: zerolog.NoLevel},
		{name: "debug", config: logger.LoggerConfigJson{LogLevel: "debug"}, expected: zerolog.DebugLevel},
		{name: "upper case warn", config: logger.LoggerConfigJson{LogLevel: " WARN "}, expected: zerolog.WarnLevel},
		{name: "unknown level", config: logger.LoggerConfigJson{LogLevel: "verbose"}, expected: zerolog.NoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.ConvertToDomain().LogLevel)
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	assert.NotNil(t, logger.OrDefault(nil))

	logger.InitDefaultLogger(logger.GlobalLoggerConfig{
		Args: []logger.LoggerArg{{Key: "service", Value: "test"}},
	})

	l := logger.Default()
	if l == nil {
		t.Fatal("Expected default logger to exist, got nil")
	}
	assert.Same(t, l, logger.OrDefault(nil))

	custom := logger.Nop()
	assert.Same(t, custom, logger.OrDefault(custom))
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New().WithOutput(&buf)

	l.Info("test json format")

	var logEntry map[string]interface{}
	err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &logEntry)
	if err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}

	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "test json format", logEntry["message"])
	_, ok := logEntry["time"]
	assert.True(t, ok, "Expected time field to be present")
}
