package video

import (
	"errors"
	"math"
)

// ErrFrameUnavailable is returned when a frame index cannot be decoded.
var ErrFrameUnavailable = errors.New("frame unavailable")

// Frame is one decoded world frame. Callers must Close it when done.
type Frame interface {
	Index() int
	Timestamp() float64
	Close() error
}

// Reader decodes frames by index in any order.
// A Reader is used from a single goroutine.
type Reader interface {
	Read(index int) (Frame, error)
	Close() error
}

// Opener creates independent readers over the same video.
type Opener interface {
	Open() (Reader, error)
}

// Source is a random-access world video with known frame timestamps.
type Source interface {
	Opener
	FrameCount() int
	Timestamps() []float64
}

// EnclosingWindow returns the timestamp window that belongs to frame index:
// from halfway to the previous frame up to halfway to the next one. The
// first and last frames extend to -Inf and +Inf.
func EnclosingWindow(timestamps []float64, index int) (start, end float64) {
	now := timestamps[index]

	before := math.Inf(-1)
	if index > 0 {
		before = timestamps[index-1]
	}
	after := math.Inf(1)
	if index < len(timestamps)-1 {
		after = timestamps[index+1]
	}

	return (now + before) / 2, (after + now) / 2
}
