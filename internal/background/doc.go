// Package background runs cancellable producers on their own goroutines.
//
// A [Task] wraps a generator function. Results are buffered in an
// unbounded queue that the owning control loop drains with Fetch on each
// tick, so the owner never blocks on decoding or detection work.
//
// Lifecycle:
//   - Idle: created, not started
//   - Running: generator goroutine active
//   - Cancelled: Cancel was called, nothing more is enqueued
//   - Completed / Failed: generator returned
//
// [NewVideoProcessor] walks the frames of a video that are not yet known,
// starting at the position of a shared [SeekCursor]. [NewMapTask] maps a
// fixed list of work items, which the surface location and gaze fillers use.
//
// Owners keep at most one task per cache and cancel the previous one
// before starting a replacement.
package background
