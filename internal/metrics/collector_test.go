package metrics

import (
	"sync"
	"testing"
	"time"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewCollector(t *testing.T) {
	provider := &mockStatsProvider{
		stats: Stats{FrameCount: 100, FilteredVisited: 40, FilteredPositive: 11, Surfaces: 2},
	}

	collector := NewCollector(provider, 5*time.Second)

	if collector == nil {
		t.Fatal("NewCollector returned nil")
	}
	if collector.provider != provider {
		t.Error("provider not set correctly")
	}
	if collector.interval != 5*time.Second {
		t.Errorf("interval = %v, want %v", collector.interval, 5*time.Second)
	}
	if collector.stop == nil {
		t.Error("stop channel not initialized")
	}
}

func TestCollectorStartStop(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{FrameCount: 50}}

	collector := NewCollector(provider, 20*time.Millisecond)
	collector.Start()
	time.Sleep(100 * time.Millisecond)
	collector.Stop()
	collector.Stop()

	if provider.callCount() < 2 {
		t.Errorf("Expected at least 2 collections, got %d", provider.callCount())
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, time.Second)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() panicked with nil provider: %v", r)
		}
	}()

	collector.collect()
}

func TestStatsProgress(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  float64
	}{
		{"empty recording", Stats{}, 1},
		{"nothing detected", Stats{FrameCount: 80}, 0},
		{"half detected", Stats{FrameCount: 80, FilteredVisited: 40}, 0.5},
		{"unfiltered ignored", Stats{FrameCount: 80, UnfilteredVisited: 80, FilteredVisited: 20}, 0.25},
		{"done", Stats{FrameCount: 80, FilteredVisited: 80}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.Progress(); got != tt.want {
				t.Errorf("Expected progress %v, got %v", tt.want, got)
			}
		})
	}
}
