package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"surface-tracker/internal/markers"
	"surface-tracker/internal/surface"
	"surface-tracker/internal/video"
)

type fakeFrame struct{ index int }

func (f fakeFrame) Index() int         { return f.index }
func (f fakeFrame) Timestamp() float64 { return float64(f.index) / 30 }
func (f fakeFrame) Close() error       { return nil }

var errDecoderCrashed = errors.New("decoder crashed")

// fakeSource serves n frames. When gate is set, every read waits for a
// value from it. Frames in broken never decode; crashAt fails the read of
// that frame once with a non-recoverable error.
type fakeSource struct {
	n       int
	gate    chan struct{}
	broken  map[int]bool
	crashAt int
	crashed bool

	mu    sync.Mutex
	reads int
}

func (s *fakeSource) FrameCount() int { return s.n }

func (s *fakeSource) Timestamps() []float64 {
	ts := make([]float64, s.n)
	for i := range ts {
		ts[i] = float64(i) / 30
	}
	return ts
}

func (s *fakeSource) Open() (video.Reader, error) { return &fakeReader{src: s}, nil }

func (s *fakeSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type fakeReader struct{ src *fakeSource }

func (r *fakeReader) Read(index int) (video.Frame, error) {
	if r.src.gate != nil {
		<-r.src.gate
	}
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	if r.src.broken[index] {
		return nil, fmt.Errorf("%w: frame %d", video.ErrFrameUnavailable, index)
	}
	if r.src.crashAt > 0 && index == r.src.crashAt && !r.src.crashed {
		r.src.crashed = true
		return nil, errDecoderCrashed
	}
	r.src.reads++
	return fakeFrame{index: index}, nil
}

func (r *fakeReader) Close() error { return nil }

// fakeDetector returns the markers of detect for each frame and records calls.
type fakeDetector struct {
	detect   func(index int) []markers.Marker
	calls    atomic.Int64
	inverted atomic.Bool
}

func (d *fakeDetector) Detect(frame video.Frame, minPerimeter float64, inverted bool) []markers.Marker {
	d.calls.Add(1)
	d.inverted.Store(inverted)
	var out []markers.Marker
	for _, m := range d.detect(frame.Index()) {
		if m.Perimeter >= minPerimeter {
			out = append(out, m)
		}
	}
	return out
}

type fakeStore struct {
	mu   sync.Mutex
	defs []surface.Definition
}

func (s *fakeStore) ListSurfaces(context.Context) ([]surface.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.defs), nil
}

func (s *fakeStore) ReplaceSurfaces(_ context.Context, defs []surface.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs = slices.Clone(defs)
	return nil
}

func (s *fakeStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, d := range s.defs {
		names = append(names, d.Name)
	}
	return names
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func square(id int, x, y, size float64) markers.Marker {
	verts := [4]markers.Point{
		markers.Pt(x, y), markers.Pt(x+size, y),
		markers.Pt(x+size, y+size), markers.Pt(x, y+size),
	}
	return markers.Marker{ID: id, IDConfidence: 1, Verts: verts, Perimeter: markers.Perimeter(verts)}
}

// waitFor ticks tr until cond holds.
func waitFor(t *testing.T, tr *Tracker, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		tr.Tick()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func waitDetection(t *testing.T, tr *Tracker) {
	t.Helper()
	waitFor(t, tr, "marker detection", func() bool { return tr.producer == nil })
}
