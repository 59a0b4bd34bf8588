package aruco

import (
	"sync"

	"gocv.io/x/gocv"

	"surface-tracker/internal/markers"
	"surface-tracker/internal/video"
)

// matFrame is implemented by frames decoded through gocv.
type matFrame interface {
	Mat() gocv.Mat
}

// Detector finds ArUco markers with OpenCV. The zero value is not usable;
// call New.
type Detector struct {
	mu       sync.Mutex
	detector gocv.ArucoDetector
}

// New creates a detector for the given predefined dictionary, for
// example gocv.ArucoDict4x4_50.
func New(dict gocv.ArucoDictionaryCode) *Detector {
	params := gocv.NewArucoDetectorParameters()
	return &Detector{
		detector: gocv.NewArucoDetectorWithParams(gocv.GetPredefinedDictionary(dict), params),
	}
}

// Close releases the OpenCV detector.
func (d *Detector) Close() error {
	return d.detector.Close()
}

// Detect implements markers.Detector. Frames that were not decoded by
// gocv yield no markers.
func (d *Detector) Detect(frame video.Frame, minPerimeter float64, inverted bool) []markers.Marker {
	mf, ok := frame.(matFrame)
	if !ok {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mf.Mat(), &gray, gocv.ColorBGRToGray)

	if inverted {
		gocv.BitwiseNot(gray, &gray)
	}

	d.mu.Lock()
	corners, ids, _ := d.detector.DetectMarkers(gray)
	d.mu.Unlock()

	out := make([]markers.Marker, 0, len(ids))
	for i, id := range ids {
		if len(corners[i]) != 4 {
			continue
		}
		var verts [4]markers.Point
		for k, c := range corners[i] {
			verts[k] = markers.Pt(float64(c.X), float64(c.Y))
		}
		m := markers.Marker{
			ID:           id,
			IDConfidence: 1,
			Verts:        verts,
			Perimeter:    markers.Perimeter(verts),
		}
		if m.Perimeter < minPerimeter {
			continue
		}
		out = append(out, m)
	}
	return out
}
