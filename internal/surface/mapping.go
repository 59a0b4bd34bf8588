package surface

import (
	"context"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/gaze"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/video"
)

// GazeOnSurface is a gaze event mapped into surface coordinates.
type GazeOnSurface struct {
	gaze.Event
	// SurfNormPos is in normalised surface coordinates, origin bottom left.
	SurfNormPos markers.Point `json:"surfNormPos"`
	OnSurf      bool          `json:"onSurf"`
}

// MapEvent maps a single event into surface coordinates using loc.
// ok is false when the event cannot be projected.
func MapEvent(e gaze.Event, loc Location, camera CameraModel) (GazeOnSurface, bool) {
	img := camera.Undistort(camera.Denormalize(e.NormPos))
	p, ok := loc.ImgToSurf.Apply(img)
	if !ok {
		return GazeOnSurface{}, false
	}
	on := p.X() >= 0 && p.X() <= 1 && p.Y() >= 0 && p.Y() <= 1
	return GazeOnSurface{Event: e, SurfNormPos: p, OnSurf: on}, true
}

// MapSection maps the events of every frame in r onto the surface. locs
// is a snapshot of the full location cache. Frames where the surface is
// not detected get no events. The result has one entry per frame of r.
func MapSection(ctx context.Context, locs []cachelist.Slot[Location], r cachelist.Range, timestamps []float64, events *gaze.Stream, camera CameraModel) ([][]GazeOnSurface, error) {
	r = r.Intersect(cachelist.Range{Start: 0, End: min(len(locs), len(timestamps))})
	out := make([][]GazeOnSurface, r.Len())

	for i := r.Start; i < r.End; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		loc, ok := locs[i].Get()
		if !ok || !loc.Detected {
			continue
		}

		start, end := video.EnclosingWindow(timestamps, i)
		window := events.Window(start, end)
		if len(window) == 0 {
			continue
		}
		mapped := make([]GazeOnSurface, 0, len(window))
		for _, e := range window {
			if g, ok := MapEvent(e, loc, camera); ok {
				mapped = append(mapped, g)
			}
		}
		out[i-r.Start] = mapped
	}
	return out, nil
}
