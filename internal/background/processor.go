package background

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"surface-tracker/internal/logging"
	"surface-tracker/internal/video"
)

// ComputeFunc derives a result from one decoded frame. It must not keep
// the frame after returning.
type ComputeFunc[R any] func(video.Frame) R

// Result pairs a frame index with the value computed for it.
type Result[R any] struct {
	Index int
	Value R
	// Unavailable marks a frame that could not be decoded. Value is the
	// zero value and the frame counts as visited.
	Unavailable bool
}

// NewVideoProcessor starts a task that computes a result for every frame
// whose seed entry is false.
//
// Each step picks the next unvisited index at or after the current
// position, wrapping around to the start. A new cursor generation moves
// the position. An index is never emitted twice, including after a seek
// onto an already visited frame.
//
// A frame that reads as video.ErrFrameUnavailable is emitted as Unavailable
// and production continues. Any other read error fails the task.
func NewVideoProcessor[R any](name string, src video.Opener, compute ComputeFunc[R], seed []bool, cursor *SeekCursor) *Task[Result[R]] {
	visited := slices.Clone(seed)

	return Go(name, func(ctx context.Context, yield func(Result[R]) bool) error {
		remaining := 0
		for _, v := range visited {
			if !v {
				remaining++
			}
		}
		if remaining == 0 {
			return nil
		}

		reader, err := src.Open()
		if err != nil {
			return fmt.Errorf("open video: %w", err)
		}
		defer func() {
			if err := reader.Close(); err != nil {
				logging.Debug("Closing video reader for %s: %v", name, err)
			}
		}()

		n := len(visited)
		pos, lastGen := cursor.Load()
		if lastGen == 0 {
			pos = 0
		}
		pos = clampIndex(pos, n)

		for remaining > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			if idx, gen := cursor.Load(); gen != lastGen {
				lastGen = gen
				pos = clampIndex(idx, n)
			}

			next := nextUnvisited(visited, pos)
			if next < 0 {
				break
			}

			result := Result[R]{Index: next}
			frame, err := reader.Read(next)
			switch {
			case errors.Is(err, video.ErrFrameUnavailable):
				logging.Warn("%s: frame %d could not be decoded, treating it as empty: %v", name, next, err)
				result.Unavailable = true
			case err != nil:
				return fmt.Errorf("read frame %d: %w", next, err)
			default:
				result.Value = compute(frame)
				_ = frame.Close()
			}

			visited[next] = true
			remaining--
			pos = next + 1
			if pos >= n {
				pos = 0
			}

			if !yield(result) {
				return nil
			}
		}
		return nil
	})
}

// nextUnvisited scans forward from pos, wrapping once. It returns -1 when
// every index is visited.
func nextUnvisited(visited []bool, pos int) int {
	n := len(visited)
	for k := 0; k < n; k++ {
		i := pos + k
		if i >= n {
			i -= n
		}
		if !visited[i] {
			return i
		}
	}
	return -1
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
