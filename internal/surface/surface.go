package surface

import (
	"context"
	"errors"
	"fmt"
	"image"
	"maps"
	"math"

	"github.com/google/uuid"

	"surface-tracker/internal/background"
	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/heatmap"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/metrics"
)

const (
	// DefaultMinMarkers is how many registered markers must be visible for
	// a surface to count as detected.
	DefaultMinMarkers = 1
	// DefaultHeatmapSmoothness is the blur factor of new surfaces.
	DefaultHeatmapSmoothness = 0.35
)

var (
	// ErrLocationCacheNotReady is returned when visibility is requested for
	// frames whose locations are not computed yet.
	ErrLocationCacheNotReady = errors.New("surface location cache not ready")
	// ErrNoMarkers is returned when a surface is defined without visible markers.
	ErrNoMarkers = errors.New("no markers visible")
)

// RegisteredMarker is a marker that belongs to a surface, with its corners
// in normalised surface coordinates.
type RegisteredMarker struct {
	ID    int              `json:"id"`
	Verts [4]markers.Point `json:"verts"`
}

// Definition is the persistent part of a surface.
type Definition struct {
	UID               uuid.UUID                `json:"uid"`
	Name              string                   `json:"name"`
	RegisteredMarkers map[int]RegisteredMarker `json:"registeredMarkers"`
	// RealWorldSize is width and height in user units, used for aspect ratio and export.
	RealWorldSize     [2]float64 `json:"realWorldSize"`
	HeatmapSmoothness float64    `json:"heatmapSmoothness"`
	MinMarkers        int        `json:"minMarkers"`
}

// Location is the pose of a surface in one frame.
type Location struct {
	Detected           bool       `json:"detected"`
	ImgToSurf          Homography `json:"imgToSurf"`
	SurfToImg          Homography `json:"surfToImg"`
	NumDetectedMarkers int        `json:"numDetectedMarkers"`
}

// IsDetected is the positive predicate of location caches.
func IsDetected(l Location) bool { return l.Detected }

type locationResult struct {
	index int
	slot  cachelist.Slot[Location]
}

// Surface is a planar region tracked through registered markers. It is
// owned by the tracker's control goroutine.
type Surface struct {
	Definition

	locationCache  *cachelist.Cache[Location]
	locationFiller *background.Task[locationResult]

	withinHeatmap image.Image
	acrossHeatmap image.Image
}

// New wraps a definition, filling defaults.
func New(def Definition) *Surface {
	if def.UID == uuid.Nil {
		def.UID = uuid.New()
	}
	if def.RegisteredMarkers == nil {
		def.RegisteredMarkers = map[int]RegisteredMarker{}
	}
	if def.RealWorldSize[0] <= 0 || def.RealWorldSize[1] <= 0 {
		def.RealWorldSize = [2]float64{1, 1}
	}
	if def.HeatmapSmoothness <= 0 {
		def.HeatmapSmoothness = DefaultHeatmapSmoothness
	}
	if def.MinMarkers <= 0 {
		def.MinMarkers = DefaultMinMarkers
	}
	return &Surface{
		Definition:    def,
		withinHeatmap: heatmap.Placeholder(),
		acrossHeatmap: heatmap.Placeholder(),
	}
}

// DefineFromMarkers creates a surface from the markers visible in one
// frame. The bounding box of all markers becomes the surface.
func DefineFromMarkers(name string, ms []markers.Marker, camera CameraModel) (*Surface, error) {
	if len(ms) == 0 {
		return nil, ErrNoMarkers
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	undistorted := make([][4]markers.Point, len(ms))
	for i, m := range ms {
		for k, v := range m.Verts {
			p := camera.Undistort(v)
			undistorted[i][k] = p
			minX, maxX = math.Min(minX, p.X()), math.Max(maxX, p.X())
			minY, maxY = math.Min(minY, p.Y()), math.Max(maxY, p.Y())
		}
	}
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("define surface %q: %w", name, ErrDegenerate)
	}

	// Surface y points up, image y points down.
	toSurf := func(p markers.Point) markers.Point {
		return markers.Pt((p.X()-minX)/w, (maxY-p.Y())/h)
	}

	reg := make(map[int]RegisteredMarker, len(ms))
	for i, m := range ms {
		var verts [4]markers.Point
		for k, p := range undistorted[i] {
			verts[k] = toSurf(p)
		}
		reg[m.ID] = RegisteredMarker{ID: m.ID, Verts: verts}
	}

	return New(Definition{
		Name:              name,
		RegisteredMarkers: reg,
		RealWorldSize:     [2]float64{1, h / w},
	}), nil
}

// Locate resolves the surface pose from the filtered markers of a frame.
func Locate(def Definition, ms []markers.Marker, camera CameraModel) Location {
	var img, surf []markers.Point
	used := 0
	for _, m := range ms {
		reg, ok := def.RegisteredMarkers[m.ID]
		if !ok {
			continue
		}
		used++
		for k := range m.Verts {
			img = append(img, camera.Undistort(m.Verts[k]))
			surf = append(surf, reg.Verts[k])
		}
	}

	minMarkers := def.MinMarkers
	if minMarkers <= 0 {
		minMarkers = DefaultMinMarkers
	}
	if used < minMarkers {
		return Location{NumDetectedMarkers: used}
	}

	imgToSurf, err := EstimateHomography(img, surf)
	if err != nil {
		return Location{NumDetectedMarkers: used}
	}
	surfToImg, err := imgToSurf.Inverse()
	if err != nil {
		return Location{NumDetectedMarkers: used}
	}

	return Location{
		Detected:           true,
		ImgToSurf:          imgToSurf,
		SurfToImg:          surfToImg,
		NumDetectedMarkers: used,
	}
}

func locateSlot(def Definition, s cachelist.Slot[[]markers.Marker], camera CameraModel) cachelist.Slot[Location] {
	ms, _ := s.Get()
	loc := Locate(def, ms, camera)
	if !loc.Detected {
		return cachelist.Empty[Location]()
	}
	return cachelist.Value(loc)
}

// snapshot copies the definition so background goroutines never share
// the marker map with the owner.
func (s *Surface) snapshot() Definition {
	def := s.Definition
	def.RegisteredMarkers = maps.Clone(s.RegisteredMarkers)
	return def
}

// UpdateLocationCache brings the location of frame index up to date with
// the marker cache. If the location cache was invalidated, a background
// filler recomputes every frame whose markers are known instead.
func (s *Surface) UpdateLocationCache(index int, markerCache *cachelist.Cache[[]markers.Marker], camera CameraModel) {
	if s.locationCache == nil {
		s.startLocationFiller(markerCache, camera)
		return
	}

	slot, err := markerCache.Get(index)
	if err != nil {
		logging.Warn("Surface %q: %v", s.Name, err)
		return
	}
	if !slot.Known() {
		return
	}
	if err := s.locationCache.Update(index, locateSlot(s.snapshot(), slot, camera)); err != nil {
		logging.Warn("Surface %q: %v", s.Name, err)
	}
}

func (s *Surface) startLocationFiller(markerCache *cachelist.Cache[[]markers.Marker], camera CameraModel) {
	slots := markerCache.Slots()
	s.locationCache = cachelist.New(len(slots), IsDetected)

	var known []int
	for i, slot := range slots {
		if slot.Known() {
			known = append(known, i)
		}
	}

	def := s.snapshot()
	s.locationFiller = background.NewMapTask("surface_location", known, func(_ context.Context, i int) locationResult {
		return locationResult{index: i, slot: locateSlot(def, slots[i], camera)}
	})
	logging.Debug("Surface %q: recomputing %d frame locations in background", s.Name, len(known))
}

// Tick applies finished background location results. It reports whether
// the location cache changed.
func (s *Surface) Tick() bool {
	if s.locationFiller == nil {
		return false
	}

	results := s.locationFiller.Fetch()
	for _, r := range results {
		if err := s.locationCache.Update(r.index, r.slot); err != nil {
			logging.Warn("Surface %q: %v", s.Name, err)
		}
	}

	switch s.locationFiller.State() {
	case background.StateCompleted, background.StateFailed:
		// Anything produced between Fetch and the state change.
		for _, r := range s.locationFiller.Fetch() {
			_ = s.locationCache.Update(r.index, r.slot)
		}
		s.locationFiller = nil
	}
	return len(results) > 0
}

// LocationFillerActive reports whether a background location filler runs.
func (s *Surface) LocationFillerActive() bool {
	return s.locationFiller != nil
}

// InvalidateLocationCache drops every computed location.
func (s *Surface) InvalidateLocationCache() {
	if s.locationFiller != nil {
		s.locationFiller.Cancel()
		s.locationFiller = nil
	}
	s.locationCache = nil
	metrics.SurfaceLocationInvalidations.Inc()
}

// LocationCache returns the current cache, or nil when invalidated.
func (s *Surface) LocationCache() *cachelist.Cache[Location] {
	return s.locationCache
}

// VisibleCountInSection counts frames in r where the surface was detected.
// It fails with ErrLocationCacheNotReady rather than undercount.
func (s *Surface) VisibleCountInSection(r cachelist.Range) (int, error) {
	if s.locationCache == nil {
		return 0, fmt.Errorf("surface %q: %w", s.Name, ErrLocationCacheNotReady)
	}
	count, complete := s.locationCache.VisibleCount(r)
	if !complete {
		return 0, fmt.Errorf("surface %q frames [%d, %d): %w", s.Name, r.Start, r.End, ErrLocationCacheNotReady)
	}
	return count, nil
}

// Heatmaps returns the within-surface and across-surface heatmaps.
func (s *Surface) Heatmaps() (within, across image.Image) {
	return s.withinHeatmap, s.acrossHeatmap
}

// SetHeatmaps replaces the heatmaps. A nil image leaves that heatmap unchanged.
func (s *Surface) SetHeatmaps(within, across image.Image) {
	if within != nil {
		s.withinHeatmap = within
	}
	if across != nil {
		s.acrossHeatmap = across
	}
}

// Close stops background work.
func (s *Surface) Close() {
	if s.locationFiller != nil {
		s.locationFiller.Cancel()
		s.locationFiller = nil
	}
}
