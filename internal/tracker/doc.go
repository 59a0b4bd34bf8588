// Package tracker drives offline surface tracking for one recording.
//
// A Tracker owns two marker caches. The unfiltered cache holds every
// detection above a low perimeter floor and is what gets persisted. The
// filtered cache applies the user's minimum perimeter and confidence and
// feeds the surface location caches. Changing the filter never decodes
// video again.
//
// Detection runs in a background producer that follows playback through
// a seek cursor. Gaze mapping for heatmaps and exports runs in replaceable
// fillers: every parameter change cancels the running filler and starts a
// new one, so stale results never reach the buffers.
//
// The Tracker itself is single-threaded. Runner is the control goroutine
// that ticks it and executes commands from other goroutines.
package tracker
