// Package markers defines square fiducial detections and the pure
// operations the marker cache applies to them: duplicate removal and
// perimeter/confidence filtering.
//
// Detection itself is behind the [Detector] interface. The OpenCV ArUco
// implementation is in the aruco subpackage.
package markers
