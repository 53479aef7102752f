package logging

import (
	"bytes"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{
			name: "explicit config",
			config: &Config{
				Level:  LevelDebug,
				Output: &bytes.Buffer{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Error("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Output: &buf}

	logger := NewLogger(config)

	procLogger := logger.WithProcessor(2)
	procLogger.Info("test message")

	output := buf.String()
	if !stringsContains(output, "proc=2") {
		t.Errorf("Expected proc=2 in output, got: %s", output)
	}

	buf.Reset()
	cacheLogger := procLogger.WithCache(1)
	cacheLogger.Info("cache message")

	output = buf.String()
	if !stringsContains(output, "proc=2") {
		t.Errorf("Expected proc=2 in cache logger output, got: %s", output)
	}
	if !stringsContains(output, "cache=1") {
		t.Errorf("Expected cache=1 in output, got: %s", output)
	}
}

func TestLoggerWithCycle(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	cycleLogger := logger.WithCycle(42)
	cycleLogger.Debug("granting bus")

	output := buf.String()
	if !stringsContains(output, "cycle=42") {
		t.Errorf("Expected cycle=42 in output, got: %s", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("should appear")
	if !stringsContains(buf.String(), "should appear") {
		t.Errorf("expected warn message in output, got: %s", buf.String())
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	config := &Config{Level: LevelDebug, Output: &buf}

	SetDefault(NewLogger(config))

	Debug("debug message", "key", "value")
	output := buf.String()
	if !stringsContains(output, "debug message") || !stringsContains(output, "key=value") {
		t.Errorf("Expected debug message with fields, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	if !stringsContains(buf.String(), "info message") {
		t.Errorf("Expected info message, got: %s", buf.String())
	}

	buf.Reset()
	Warn("warning message")
	if !stringsContains(buf.String(), "warning message") {
		t.Errorf("Expected warning message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !stringsContains(buf.String(), "error message") {
		t.Errorf("Expected error message, got: %s", buf.String())
	}
}

func stringsContains(s, substr string) bool {
	return bytes.Contains([]byte(s), []byte(substr))
}
