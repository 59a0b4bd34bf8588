package metrics

import (
	"sync"
	"time"

	"surface-tracker/internal/logging"
)

// StatsProvider reports a snapshot of the marker caches. The tracker runner
// implements it by asking the control goroutine.
type StatsProvider interface {
	GetStats() Stats
}

// Stats is a snapshot of both marker caches and the surfaces using them.
type Stats struct {
	FrameCount         int
	UnfilteredVisited  int
	UnfilteredPositive int
	FilteredVisited    int
	FilteredPositive   int
	Surfaces           int
	Detecting          bool
}

// Progress is the share of frames whose markers are known, between 0 and 1.
func (s Stats) Progress() float64 {
	if s.FrameCount == 0 {
		return 1
	}
	return float64(s.FilteredVisited) / float64(s.FrameCount)
}

// Collector copies cache stats into gauges. The caches are owned by the
// control goroutine, so they are sampled on an interval instead of being
// updated on every frame.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCollector returns a collector sampling provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start samples once and then on every interval until Stop.
func (c *Collector) Start() {
	go func() {
		c.collect()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends sampling. It may be called more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}
	stats := c.provider.GetStats()

	for _, cache := range []struct {
		name              string
		visited, positive int
	}{
		{"unfiltered", stats.UnfilteredVisited, stats.UnfilteredPositive},
		{"filtered", stats.FilteredVisited, stats.FilteredPositive},
	} {
		MarkerCacheFrames.WithLabelValues(cache.name, "total").Set(float64(stats.FrameCount))
		MarkerCacheFrames.WithLabelValues(cache.name, "visited").Set(float64(cache.visited))
		MarkerCacheFrames.WithLabelValues(cache.name, "positive").Set(float64(cache.positive))
	}
	MarkerDetectionProgress.Set(stats.Progress())
	SurfacesDefined.Set(float64(stats.Surfaces))

	logging.Debug("Cache stats: %d/%d frames detected (%.1f%%), %d with markers, %d surfaces, detecting=%v",
		stats.FilteredVisited, stats.FrameCount, stats.Progress()*100, stats.FilteredPositive, stats.Surfaces, stats.Detecting)
}
