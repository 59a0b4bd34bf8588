package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected LogLevel
	}{
		{name: "debug", input: "debug", expected: LevelDebug},
		{name: "info", input: "info", expected: LevelInfo},
		{name: "warn", input: "warn", expected: LevelWarn},
		{name: "warning alias", input: "warning", expected: LevelWarn},
		{name: "error", input: "error", expected: LevelError},
		{name: "case insensitive", input: "DEBUG", expected: LevelDebug},
		{name: "surrounding whitespace", input: "  error ", expected: LevelError},
		{name: "unknown falls back to info", input: "verbose", expected: LevelInfo},
		{name: "empty falls back to info", input: "", expected: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, expected %q", int(tt.level), got, tt.expected)
		}
	}
}

func TestSetOutputWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	Printf("marker cache saved (%d frames)", 12)

	out := buf.String()
	if !strings.Contains(out, "marker cache saved (12 frames)") {
		t.Errorf("Expected formatted message in output, got %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Expected no ANSI colour codes for a non-terminal writer, got %q", out)
	}
}

func TestLoggingFunctionsDoNotPanic(t *testing.T) {
	SetOutput(&bytes.Buffer{})

	Debug("debug %d", 1)
	Info("info %s", "x")
	Warn("warn")
	Error("error %v", nil)

	if Logger() == nil {
		t.Error("Expected Logger() to return a logger")
	}
}
