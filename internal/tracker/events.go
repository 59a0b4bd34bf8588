package tracker

import (
	"encoding/json"
	"errors"
	"fmt"

	"surface-tracker/internal/cachelist"
)

// EventKind names a notification.
type EventKind string

const (
	KindMarkerDetectionParamsChanged EventKind = "marker_detection_params_changed"
	KindMarkerMinPerimeterChanged    EventKind = "marker_min_perimeter_changed"
	KindHeatmapParamsChanged         EventKind = "heatmap_params_changed"
	KindTrimIndicesChanged           EventKind = "trim_indices_changed"
	KindSurfacesChanged              EventKind = "surfaces_changed"
	KindShouldExport                 EventKind = "should_export"
	KindGazePositionsChanged         EventKind = "gaze_positions_changed"
)

// ErrUnknownEvent is returned for notifications the tracker does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a notification that changes tracker parameters or inputs. The
// set of events is closed.
type Event interface {
	Kind() EventKind
	event()
}

// MarkerDetectionParamsChanged rebuilds the marker cache from scratch.
type MarkerDetectionParamsChanged struct {
	InvertedMarkers bool `json:"invertedMarkers"`
}

// MarkerMinPerimeterChanged re-filters the cached detections.
type MarkerMinPerimeterChanged struct {
	MinPerimeter  float64 `json:"minPerimeter"`
	MinConfidence float64 `json:"minConfidence"`
}

// HeatmapParamsChanged recomputes the heatmap of one surface. A zero
// Smoothness keeps the current value.
type HeatmapParamsChanged struct {
	Name       string  `json:"name"`
	Smoothness float64 `json:"smoothness,omitempty"`
}

// TrimIndicesChanged moves the section gaze is mapped for.
type TrimIndicesChanged struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// SurfacesChanged reports that the geometry or markers of a surface changed.
type SurfacesChanged struct {
	Name string `json:"name"`
}

// ShouldExport requests an export of Range into Dir.
type ShouldExport struct {
	Range cachelist.Range `json:"range"`
	Dir   string          `json:"dir"`
}

// GazePositionsChanged reloads gaze and fixation data.
type GazePositionsChanged struct{}

func (MarkerDetectionParamsChanged) Kind() EventKind { return KindMarkerDetectionParamsChanged }
func (MarkerMinPerimeterChanged) Kind() EventKind    { return KindMarkerMinPerimeterChanged }
func (HeatmapParamsChanged) Kind() EventKind         { return KindHeatmapParamsChanged }
func (TrimIndicesChanged) Kind() EventKind           { return KindTrimIndicesChanged }
func (SurfacesChanged) Kind() EventKind              { return KindSurfacesChanged }
func (ShouldExport) Kind() EventKind                 { return KindShouldExport }
func (GazePositionsChanged) Kind() EventKind         { return KindGazePositionsChanged }

func (MarkerDetectionParamsChanged) event() {}
func (MarkerMinPerimeterChanged) event()    {}
func (HeatmapParamsChanged) event()         {}
func (TrimIndicesChanged) event()           {}
func (SurfacesChanged) event()              {}
func (ShouldExport) event()                 {}
func (GazePositionsChanged) event()         {}

// decoders builds a zero event for every kind.
var decoders = map[EventKind]func() Event{
	KindMarkerDetectionParamsChanged: func() Event { return &MarkerDetectionParamsChanged{} },
	KindMarkerMinPerimeterChanged:    func() Event { return &MarkerMinPerimeterChanged{} },
	KindHeatmapParamsChanged:         func() Event { return &HeatmapParamsChanged{} },
	KindTrimIndicesChanged:           func() Event { return &TrimIndicesChanged{} },
	KindSurfacesChanged:              func() Event { return &SurfacesChanged{} },
	KindShouldExport:                 func() Event { return &ShouldExport{} },
	KindGazePositionsChanged:         func() Event { return &GazePositionsChanged{} },
}

// DecodeEvent builds an event of kind from a JSON payload. An empty
// payload yields the zero event.
func DecodeEvent(kind EventKind, payload json.RawMessage) (Event, error) {
	mk, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	ev := mk()
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *MarkerDetectionParamsChanged:
		return *e
	case *MarkerMinPerimeterChanged:
		return *e
	case *HeatmapParamsChanged:
		return *e
	case *TrimIndicesChanged:
		return *e
	case *SurfacesChanged:
		return *e
	case *ShouldExport:
		return *e
	case *GazePositionsChanged:
		return *e
	}
	return ev
}
