package tracker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunnerDo(t *testing.T) {
	h := newHarness(t, 10, evenFrames)
	tr := h.start(t)

	r := NewRunner(tr, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	var frames int
	if err := r.Do(context.Background(), func(t *Tracker) { frames = t.Status().FrameCount }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if frames != 10 {
		t.Errorf("Expected 10 frames, got %d", frames)
	}

	deadline := time.Now().Add(5 * time.Second)
	for r.GetStats().FilteredVisited != 10 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the runner to drain detection results")
		}
		time.Sleep(time.Millisecond)
	}
	if got := r.GetStats().FilteredPositive; got != 5 {
		t.Errorf("Expected 5 frames with markers, got %d", got)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected a clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for Run to return")
	}

	if err := r.Do(context.Background(), func(*Tracker) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if stats := r.GetStats(); stats.FrameCount != 0 {
		t.Errorf("Expected zero stats from a stopped runner, got %+v", stats)
	}
}

func TestRunnerDoHonoursContext(t *testing.T) {
	h := newHarness(t, 4, evenFrames)
	r := NewRunner(h.start(t), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Do(ctx, func(*Tracker) {}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled without a running loop, got %v", err)
	}
	if r.interval != DefaultTickInterval {
		t.Errorf("Expected the default interval, got %v", r.interval)
	}
}
