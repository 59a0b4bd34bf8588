// Package gaze loads gaze positions and fixations of a recording and
// answers timestamp window queries over them.
//
// Events are stored as msgpack arrays of maps in gaze_positions.msgpack
// and fixations.msgpack. A [Watcher] reports when either file is
// rewritten so the tracker can refill its surface buffers.
package gaze
