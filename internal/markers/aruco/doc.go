// Package aruco implements markers.Detector with the OpenCV ArUco module.
//
// Building this package requires cgo and an OpenCV installation with the
// objdetect module.
package aruco
