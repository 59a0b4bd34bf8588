package tracker

import (
	"context"
	"errors"
	"time"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/metrics"
)

// DefaultTickInterval is how often the runner drains background results.
const DefaultTickInterval = 50 * time.Millisecond

// ErrStopped is returned by Do once the runner has exited.
var ErrStopped = errors.New("tracker runner stopped")

// Runner is the control goroutine that owns a Tracker. Other goroutines
// reach the tracker only through Do.
type Runner struct {
	tracker  *Tracker
	interval time.Duration
	cmds     chan func(*Tracker)
	stopped  chan struct{}
}

// NewRunner wraps t. Run must be called to start it.
func NewRunner(t *Tracker, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Runner{
		tracker:  t,
		interval: interval,
		cmds:     make(chan func(*Tracker)),
		stopped:  make(chan struct{}),
	}
}

// Run ticks the tracker and executes commands until ctx is done. The
// tracker is closed before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logging.Info("Tracker runner started (tick every %v)", r.interval)
	for {
		select {
		case <-ctx.Done():
			logging.Info("Tracker runner stopping, saving marker cache")
			r.tracker.Close()
			return nil
		case <-ticker.C:
			r.tracker.Tick()
		case cmd := <-r.cmds:
			cmd(r.tracker)
		}
	}
}

// Do runs fn on the control goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Tracker)) error {
	done := make(chan struct{})
	cmd := func(t *Tracker) {
		defer close(done)
		fn(t)
	}

	select {
	case r.cmds <- cmd:
	case <-r.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// An accepted command always runs to completion.
	<-done
	return nil
}

// GetStats implements metrics.StatsProvider.
func (r *Runner) GetStats() metrics.Stats {
	var stats metrics.Stats
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Do(ctx, func(t *Tracker) { stats = t.Stats() }); err != nil {
		logging.Debug("Skipping stats collection: %v", err)
	}
	return stats
}
