// Package capture implements video.Source on top of OpenCV through gocv.
//
// Building this package requires cgo and an OpenCV installation.
package capture
