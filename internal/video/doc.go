// Package video describes the random-access world video consumed by the
// background producers.
//
// A [Source] knows its frame count and per-frame timestamps up front and
// hands out independent [Reader]s, one per producer goroutine. Frame
// timestamps are probed once with ffprobe and cached in the recording
// directory as msgpack.
//
// The gocv-backed implementation lives in the capture subpackage so that
// packages depending only on these interfaces build without cgo.
package video
