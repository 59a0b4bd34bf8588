package gaze

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/metrics"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to the gaze and fixation files of a recording.
type Watcher struct {
	recDir   string
	debounce time.Duration
	onChange func(Kind)
}

// NewWatcher creates a watcher that calls onChange at most once per
// debounce period per kind.
func NewWatcher(recDir string, debounce time.Duration, onChange func(Kind)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{recDir: recDir, debounce: debounce, onChange: onChange}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.GazeWatcherErrors.Inc()
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	// Watch the directory so atomic replaces (rename over) are seen.
	if err := watcher.Add(w.recDir); err != nil {
		metrics.GazeWatcherErrors.Inc()
		return fmt.Errorf("watch %s: %w", w.recDir, err)
	}
	logging.Debug("Watching %s for gaze and fixation changes", w.recDir)

	pending := map[Kind]*time.Timer{}
	fire := make(chan Kind, 2)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			kind, relevant := w.kindFor(event)
			if !relevant {
				continue
			}
			metrics.GazeWatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()

			if t, ok := pending[kind]; ok {
				t.Reset(w.debounce)
				continue
			}
			pending[kind] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- kind:
				case <-ctx.Done():
				}
			})

		case kind := <-fire:
			delete(pending, kind)
			logging.Info("Detected change in %s data", kind)
			w.onChange(kind)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("Watcher error: %v", err)
			metrics.GazeWatcherErrors.Inc()
		}
	}
}

func (w *Watcher) kindFor(event fsnotify.Event) (Kind, bool) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return "", false
	}
	switch filepath.Base(event.Name) {
	case GazeFile:
		return KindGaze, true
	case FixationsFile:
		return KindFixation, true
	default:
		return "", false
	}
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
