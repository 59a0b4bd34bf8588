package tracker

import (
	"errors"
	"image"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/metrics"
)

// SurfaceStatus summarises one surface.
type SurfaceStatus struct {
	Name                 string     `json:"name"`
	UID                  string     `json:"uid"`
	RegisteredMarkers    int        `json:"registeredMarkers"`
	RealWorldSize        [2]float64 `json:"realWorldSize"`
	HeatmapSmoothness    float64    `json:"heatmapSmoothness"`
	LocationFillerActive bool       `json:"locationFillerActive"`
	// VisibleFrames is -1 while the location cache of the trim section is incomplete.
	VisibleFrames int `json:"visibleFrames"`
}

// Status is a point-in-time view of the tracker.
type Status struct {
	FrameCount       int               `json:"frameCount"`
	CurrentFrame     int               `json:"currentFrame"`
	Remaining        int               `json:"remaining"`
	DetectionRunning bool              `json:"detectionRunning"`
	InvertedMarkers  bool              `json:"invertedMarkers"`
	MinPerimeter     float64           `json:"minPerimeter"`
	MinConfidence    float64           `json:"minConfidence"`
	VisitedRanges    []cachelist.Range `json:"visitedRanges"`
	PositiveRanges   []cachelist.Range `json:"positiveRanges"`
	Trim             cachelist.Range   `json:"trim"`
	GazeFillerActive bool              `json:"gazeFillerActive"`
	ExportPending    bool              `json:"exportPending"`
	Surfaces         []SurfaceStatus   `json:"surfaces"`
}

// Status returns the current state.
func (t *Tracker) Status() Status {
	st := Status{
		FrameCount:       t.filtered.Len(),
		CurrentFrame:     t.current,
		Remaining:        t.filtered.Remaining(),
		DetectionRunning: t.producer != nil,
		InvertedMarkers:  t.cfg.InvertedMarkers,
		MinPerimeter:     t.cfg.MinPerimeter,
		MinConfidence:    t.cfg.MinConfidence,
		VisitedRanges:    t.filtered.VisitedRanges(),
		PositiveRanges:   t.filtered.PositiveRanges(),
		Trim:             t.trim,
		GazeFillerActive: t.gazeFiller != nil,
		ExportPending:    t.export != nil,
		Surfaces:         make([]SurfaceStatus, 0, len(t.surfaces)),
	}
	for _, s := range t.surfaces {
		visible, err := s.VisibleCountInSection(t.trim)
		if err != nil {
			visible = -1
		}
		st.Surfaces = append(st.Surfaces, SurfaceStatus{
			Name:                 s.Name,
			UID:                  s.UID.String(),
			RegisteredMarkers:    len(s.RegisteredMarkers),
			RealWorldSize:        s.RealWorldSize,
			HeatmapSmoothness:    s.HeatmapSmoothness,
			LocationFillerActive: s.LocationFillerActive(),
			VisibleFrames:        visible,
		})
	}
	return st
}

// Stats returns the cache counters for metrics collection.
func (t *Tracker) Stats() metrics.Stats {
	all := cachelist.Range{Start: 0, End: t.filtered.Len()}
	return metrics.Stats{
		FrameCount:         all.End,
		UnfilteredVisited:  all.End - t.unfiltered.Remaining(),
		UnfilteredPositive: t.unfiltered.PositiveCount(all),
		FilteredVisited:    all.End - t.filtered.Remaining(),
		FilteredPositive:   t.filtered.PositiveCount(all),
		Surfaces:           len(t.surfaces),
		Detecting:          t.producer != nil,
	}
}

// ErrNoHeatmap is returned when a heatmap has not been computed.
var ErrNoHeatmap = errors.New("heatmap not available")

// Heatmap returns the within-surface or across-surfaces heatmap of a surface.
func (t *Tracker) Heatmap(name string, across bool) (image.Image, error) {
	s, err := t.Surface(name)
	if err != nil {
		return nil, err
	}
	within, acrossImg := s.Heatmaps()
	img := within
	if across {
		img = acrossImg
	}
	if img == nil {
		return nil, ErrNoHeatmap
	}
	return img, nil
}
