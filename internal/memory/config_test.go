package memory

import (
	"runtime/debug"
	"testing"
)

// restoreLimit resets the runtime memory limit after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })
}

func TestConfigureFromEnvNoVariables(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()
	if result.Configured {
		t.Error("Expected Configured to be false when no env vars set")
	}
	if result.Source != sourceNone {
		t.Errorf("Expected source %q, got %q", sourceNone, result.Source)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	tests := []struct {
		name          string
		limit         string
		ratio         string
		expectedRatio float64
		configured    bool
	}{
		{name: "default ratio", limit: "1073741824", expectedRatio: DefaultMemoryRatio, configured: true},
		{name: "custom ratio", limit: "1073741824", ratio: "0.5", expectedRatio: 0.5, configured: true},
		{name: "ratio out of range", limit: "1073741824", ratio: "1.5", expectedRatio: DefaultMemoryRatio, configured: true},
		{name: "unparsable ratio", limit: "1073741824", ratio: "half", expectedRatio: DefaultMemoryRatio, configured: true},
		{name: "unparsable limit", limit: "1Gi"},
		{name: "negative limit", limit: "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Configured != tt.configured {
				t.Fatalf("Expected Configured %v, got %v", tt.configured, result.Configured)
			}
			if !tt.configured {
				return
			}
			if result.Source != sourceMemoryLimit {
				t.Errorf("Expected source %q, got %q", sourceMemoryLimit, result.Source)
			}
			if result.Ratio != tt.expectedRatio {
				t.Errorf("Expected ratio %v, got %v", tt.expectedRatio, result.Ratio)
			}
			expected := int64(float64(1073741824) * tt.expectedRatio)
			if result.GoMemLimit != expected {
				t.Errorf("Expected GoMemLimit %d, got %d", expected, result.GoMemLimit)
			}
			if got := debug.SetMemoryLimit(-1); got != expected {
				t.Errorf("Expected runtime limit %d, got %d", expected, got)
			}
		})
	}
}

func TestConfigureFromEnvGOMEMLIMITWins(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "500MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	debug.SetMemoryLimit(500 * 1024 * 1024)

	result := ConfigureFromEnv()
	if result.Source != sourceGOMEMLIMIT {
		t.Errorf("Expected source %q, got %q", sourceGOMEMLIMIT, result.Source)
	}
	if result.GoMemLimit != 500*1024*1024 {
		t.Errorf("Expected GoMemLimit %d, got %d", 500*1024*1024, result.GoMemLimit)
	}
	if result.ContainerLimit != 0 {
		t.Errorf("Expected MEMORY_LIMIT to be ignored, got %d", result.ContainerLimit)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1073741824, "1.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}
