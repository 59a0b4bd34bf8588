package gaze

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"surface-tracker/internal/filesystem"
	"surface-tracker/internal/logging"
)

const (
	// GazeFile holds gaze positions of a recording.
	GazeFile = "gaze_positions.msgpack"
	// FixationsFile holds detected fixations of a recording.
	FixationsFile = "fixations.msgpack"
)

// Kind distinguishes gaze positions from fixations.
type Kind string

const (
	KindGaze     Kind = "gaze"
	KindFixation Kind = "fixation"
)

// FileName returns the recording file that stores events of kind k.
func (k Kind) FileName() string {
	if k == KindFixation {
		return FixationsFile
	}
	return GazeFile
}

// Event is a gaze position or fixation in normalised world image
// coordinates with the origin at the bottom left.
type Event struct {
	ID         int        `msgpack:"id" json:"id,omitempty"`
	Timestamp  float64    `msgpack:"timestamp" json:"timestamp"`
	NormPos    [2]float64 `msgpack:"norm_pos" json:"normPos"`
	Confidence float64    `msgpack:"confidence" json:"confidence"`
	Duration   float64    `msgpack:"duration" json:"duration,omitempty"`
}

// Stream is an immutable, timestamp-sorted sequence of events.
type Stream struct {
	events     []Event
	timestamps []float64
}

// NewStream sorts a copy of events by timestamp.
func NewStream(events []Event) *Stream {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Event) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})

	ts := make([]float64, len(sorted))
	for i, e := range sorted {
		ts[i] = e.Timestamp
	}
	return &Stream{events: sorted, timestamps: ts}
}

// Len returns the number of events.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.events)
}

// Window returns the events with start <= timestamp < end. The returned
// slice aliases the stream and must not be modified.
func (s *Stream) Window(start, end float64) []Event {
	if s == nil || end <= start {
		return nil
	}
	lo := sort.SearchFloat64s(s.timestamps, start)
	hi := sort.SearchFloat64s(s.timestamps, end)
	return s.events[lo:hi]
}

// Load reads the events of kind k from a recording. A missing file yields
// an empty stream.
func Load(recDir string, k Kind) (*Stream, error) {
	path := filepath.Join(recDir, k.FileName())

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("No %s data at %s", k, path)
			return NewStream(nil), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var events []Event
	if err := msgpack.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	logging.Info("Loaded %d %s events from %s", len(events), k, path)
	return NewStream(events), nil
}

// Save writes events of kind k into a recording. Used by tooling and tests.
func Save(recDir string, k Kind, events []Event) error {
	data, err := msgpack.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return filesystem.WriteFileAtomic(filepath.Join(recDir, k.FileName()), data, filesystem.DefaultRetryConfig())
}
