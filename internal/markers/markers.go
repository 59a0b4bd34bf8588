package markers

import (
	"cmp"
	"math"
	"slices"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/video"
)

// CacheMinPerimeter is the perimeter floor used when filling the
// unfiltered cache. Raising the user threshold above it never needs a
// new pass over the video.
const CacheMinPerimeter = 20

// Point is an image-space position in pixels, stored as [x, y].
type Point [2]float64

// Pt builds a Point.
func Pt(x, y float64) Point { return Point{x, y} }

// X returns the horizontal coordinate.
func (p Point) X() float64 { return p[0] }

// Y returns the vertical coordinate.
func (p Point) Y() float64 { return p[1] }

// Marker is a single square fiducial detection. Verts run clockwise from
// the marker's top-left corner.
type Marker struct {
	ID           int      `json:"id" msgpack:"id"`
	IDConfidence float64  `json:"idConfidence" msgpack:"id_confidence"`
	Verts        [4]Point `json:"verts" msgpack:"verts"`
	Perimeter    float64  `json:"perimeter" msgpack:"perimeter"`
}

// Detector finds markers in a frame. Implementations must be safe to call
// from the producer goroutine and keep no state between calls.
type Detector interface {
	Detect(frame video.Frame, minPerimeter float64, inverted bool) []Marker
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(frame video.Frame, minPerimeter float64, inverted bool) []Marker

func (f DetectorFunc) Detect(frame video.Frame, minPerimeter float64, inverted bool) []Marker {
	return f(frame, minPerimeter, inverted)
}

// Perimeter returns the length of the closed polygon through verts.
func Perimeter(verts [4]Point) float64 {
	p := 0.0
	for i := range verts {
		a, b := verts[i], verts[(i+1)%len(verts)]
		p += math.Hypot(b.X()-a.X(), b.Y()-a.Y())
	}
	return p
}

// RemoveDuplicates keeps one detection per marker ID, the one with the
// largest perimeter. The result is ordered by descending perimeter.
func RemoveDuplicates(ms []Marker) []Marker {
	if len(ms) < 2 {
		return slices.Clone(ms)
	}

	sorted := slices.Clone(ms)
	slices.SortStableFunc(sorted, func(a, b Marker) int {
		return cmp.Compare(b.Perimeter, a.Perimeter)
	})

	seen := make(map[int]struct{}, len(sorted))
	out := sorted[:0]
	for _, m := range sorted {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Filter returns the detections large and confident enough for surface
// geometry.
func Filter(ms []Marker, minPerimeter, minConfidence float64) []Marker {
	var out []Marker
	for _, m := range ms {
		if m.Perimeter >= minPerimeter && m.IDConfidence > minConfidence {
			out = append(out, m)
		}
	}
	return out
}

// Slot wraps detections as a cache slot: Empty when there are none.
func Slot(ms []Marker) cachelist.Slot[[]Marker] {
	if len(ms) == 0 {
		return cachelist.Empty[[]Marker]()
	}
	return cachelist.Value(ms)
}

// FilterSlot applies Filter to a cache slot. Unknown stays Unknown.
func FilterSlot(s cachelist.Slot[[]Marker], minPerimeter, minConfidence float64) cachelist.Slot[[]Marker] {
	return cachelist.Map(s, func(ms []Marker) cachelist.Slot[[]Marker] {
		return Slot(Filter(ms, minPerimeter, minConfidence))
	})
}

// HasMarkers is the positive predicate for marker caches.
func HasMarkers(ms []Marker) bool { return len(ms) > 0 }

// NewCache returns an empty marker cache of the given length.
func NewCache(length int) *cachelist.Cache[[]Marker] {
	return cachelist.New(length, HasMarkers)
}

// CacheFromSlots resumes a marker cache.
func CacheFromSlots(slots []cachelist.Slot[[]Marker]) *cachelist.Cache[[]Marker] {
	return cachelist.FromSlots(slots, HasMarkers)
}
