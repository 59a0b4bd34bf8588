package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/metrics"
)

// State is the lifecycle state of a Task.
type State int32

const (
	// StateIdle means the task was created but not started.
	StateIdle State = iota
	// StateRunning means the generator goroutine is active.
	StateRunning
	// StateCancelled means Cancel was called. Results produced before that
	// may still be fetched.
	StateCancelled
	// StateCompleted means the generator returned without error.
	StateCompleted
	// StateFailed means the generator returned an error. See Err.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// GenerateFunc produces results by calling yield. It must return promptly
// once yield returns false or ctx is done.
type GenerateFunc[T any] func(ctx context.Context, yield func(T) bool) error

// Task runs a generator on its own goroutine and buffers its results until
// the owner fetches them.
//
// The outbound queue is unbounded. The owner polls with Fetch and never
// blocks on the producer.
type Task[T any] struct {
	name string
	gen  GenerateFunc[T]

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	queue    []T
	state    State
	err      error
	produced int
}

// NewTask creates an idle task. name is used for logs and metric labels.
func NewTask[T any](name string, gen GenerateFunc[T]) *Task[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task[T]{
		name:   name,
		gen:    gen,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Go creates and starts a task.
func Go[T any](name string, gen GenerateFunc[T]) *Task[T] {
	t := NewTask(name, gen)
	t.Start()
	return t
}

// Start launches the generator. Starting a task twice, or after Cancel, is a no-op.
func (t *Task[T]) Start() {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return
	}
	t.state = StateRunning
	t.mu.Unlock()

	metrics.BackgroundTasksRunning.WithLabelValues(t.name).Inc()
	go t.run()
}

func (t *Task[T]) run() {
	start := time.Now()
	defer close(t.done)
	defer metrics.BackgroundTasksRunning.WithLabelValues(t.name).Dec()

	err := t.safeGenerate()

	t.mu.Lock()
	outcome := "cancelled"
	if t.state == StateRunning {
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			t.state = StateFailed
			t.err = err
			outcome = "failed"
		default:
			t.state = StateCompleted
			outcome = "completed"
		}
	}
	produced := t.produced
	t.mu.Unlock()

	elapsed := time.Since(start)
	metrics.BackgroundTasksTotal.WithLabelValues(t.name, outcome).Inc()
	metrics.BackgroundTaskDuration.WithLabelValues(t.name).Observe(elapsed.Seconds())

	if outcome == "failed" {
		logging.Error("Background task %s failed after %d results: %v", t.name, produced, err)
		return
	}
	logging.Debug("Background task %s %s: %d results in %v", t.name, outcome, produced, elapsed)
}

func (t *Task[T]) safeGenerate() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", t.name, r)
		}
	}()
	return t.gen(t.ctx, t.push)
}

// push enqueues v unless the task was cancelled. The check and the append
// share the lock with Cancel, so nothing is enqueued once Cancel returns.
func (t *Task[T]) push(v T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return false
	}
	t.queue = append(t.queue, v)
	t.produced++
	metrics.BackgroundItemsProduced.WithLabelValues(t.name).Inc()
	return true
}

// Fetch drains and returns everything produced since the last call.
// It never blocks on the producer.
func (t *Task[T]) Fetch() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.queue
	t.queue = nil
	return out
}

// Cancel asks the generator to stop and returns immediately.
func (t *Task[T]) Cancel() {
	t.mu.Lock()
	if t.state == StateIdle || t.state == StateRunning {
		t.state = StateCancelled
	}
	t.mu.Unlock()
	t.cancel()
}

// State returns the current lifecycle state.
func (t *Task[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Completed reports whether the generator finished without error.
func (t *Task[T]) Completed() bool {
	return t.State() == StateCompleted
}

// Err returns the generator error of a failed task.
func (t *Task[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the generator goroutine has exited. A task that was
// never started never closes it.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Name returns the task name.
func (t *Task[T]) Name() string {
	return t.name
}
