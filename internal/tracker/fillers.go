package tracker

import (
	"context"
	"errors"
	"image"

	"surface-tracker/internal/background"
	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/export"
	"surface-tracker/internal/gaze"
	"surface-tracker/internal/heatmap"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/metrics"
	"surface-tracker/internal/surface"
)

// SurfaceGaze is the mapped gaze of one surface, one entry per frame of
// the filled section.
type SurfaceGaze struct {
	SurfaceIndex int
	PerFrame     [][]surface.GazeOnSurface
}

type fillJob struct {
	index     int
	locations []cachelist.Slot[surface.Location]
}

func placeholder() image.Image { return heatmap.Placeholder() }

// section is the frame range gaze is mapped for: the export range while an
// export is pending, the trim range otherwise.
func (t *Tracker) section() cachelist.Range {
	if t.export != nil {
		return t.export.Range.Intersect(cachelist.Range{Start: 0, End: len(t.timestamps)})
	}
	return t.trim
}

// fillGazeBuffer replaces the running gaze filler, and the fixation filler
// when an export is pending, with fillers over the current section.
func (t *Tracker) fillGazeBuffer() {
	section := t.section()
	jobs := make([]fillJob, len(t.surfaces))
	for i, s := range t.surfaces {
		jobs[i].index = i
		if lc := s.LocationCache(); lc != nil {
			jobs[i].locations = lc.Slots()
		}
	}

	t.gazeFiller = t.replaceFiller(gaze.KindGaze, t.gazeFiller, jobs, t.gaze, section)
	t.gazeBuffer = make([][][]surface.GazeOnSurface, len(jobs))

	if t.export != nil {
		t.fixationFiller = t.replaceFiller(gaze.KindFixation, t.fixationFiller, jobs, t.fixations, section)
		t.fixationBuffer = make([][][]surface.GazeOnSurface, len(jobs))
	} else if t.fixationFiller != nil {
		t.fixationFiller.Cancel()
		t.fixationFiller = nil
		t.fixationBuffer = nil
	}
}

func (t *Tracker) replaceFiller(kind gaze.Kind, old *background.Task[SurfaceGaze], jobs []fillJob, events *gaze.Stream, section cachelist.Range) *background.Task[SurfaceGaze] {
	event := "started"
	if old != nil {
		old.Cancel()
		event = "replaced"
	}
	metrics.FillerRunsTotal.WithLabelValues(string(kind), event).Inc()

	timestamps, camera := t.timestamps, t.cfg.Camera
	return background.NewMapTask(string(kind)+"_mapping", jobs, func(ctx context.Context, j fillJob) SurfaceGaze {
		if j.locations == nil {
			return SurfaceGaze{SurfaceIndex: j.index, PerFrame: make([][]surface.GazeOnSurface, section.Len())}
		}
		perFrame, err := surface.MapSection(ctx, j.locations, section, timestamps, events, camera)
		if err != nil {
			return SurfaceGaze{SurfaceIndex: j.index}
		}
		return SurfaceGaze{SurfaceIndex: j.index, PerFrame: perFrame}
	})
}

func finished(task *background.Task[SurfaceGaze]) bool {
	switch task.State() {
	case background.StateCompleted, background.StateFailed:
		return true
	}
	return false
}

func collect(buf [][][]surface.GazeOnSurface, results []SurfaceGaze) {
	for _, r := range results {
		if r.SurfaceIndex < len(buf) {
			buf[r.SurfaceIndex] = r.PerFrame
		}
	}
}

func (t *Tracker) drainFillers() {
	if t.gazeFiller == nil {
		return
	}

	done := finished(t.gazeFiller) && (t.fixationFiller == nil || finished(t.fixationFiller))
	collect(t.gazeBuffer, t.gazeFiller.Fetch())
	if t.fixationFiller != nil {
		collect(t.fixationBuffer, t.fixationFiller.Fetch())
	}
	if !done {
		return
	}

	t.gazeFiller, t.fixationFiller = nil, nil
	metrics.FillerRunsTotal.WithLabelValues(string(gaze.KindGaze), "completed").Inc()

	t.updateHeatmaps()
	if t.export != nil {
		t.writeExport()
		t.export = nil
	}
	t.gazeBuffer, t.fixationBuffer = nil, nil
}

func (t *Tracker) cancelFillers() {
	for _, f := range []*background.Task[SurfaceGaze]{t.gazeFiller, t.fixationFiller} {
		if f != nil {
			f.Cancel()
		}
	}
	t.gazeFiller, t.fixationFiller = nil, nil
	t.gazeBuffer, t.fixationBuffer = nil, nil
}

func onSurface(frames [][]surface.GazeOnSurface) []markers.Point {
	var points []markers.Point
	for _, frame := range frames {
		for _, g := range frame {
			if g.OnSurf {
				points = append(points, g.SurfNormPos)
			}
		}
	}
	return points
}

func (t *Tracker) updateHeatmaps() {
	counts := make([]int, len(t.surfaces))
	for i := range t.surfaces {
		if i < len(t.gazeBuffer) {
			counts[i] = len(onSurface(t.gazeBuffer[i]))
		}
	}
	across := heatmap.Across(counts)
	metrics.HeatmapRendersTotal.WithLabelValues("across").Inc()

	for i, s := range t.surfaces {
		s.SetHeatmaps(nil, across[i])
		if _, ok := t.heatmapRequests[s.UID]; !ok || i >= len(t.gazeBuffer) {
			continue
		}
		aspect := s.RealWorldSize[1] / s.RealWorldSize[0]
		s.SetHeatmaps(heatmap.Within(onSurface(t.gazeBuffer[i]), aspect, s.HeatmapSmoothness), nil)
		metrics.HeatmapRendersTotal.WithLabelValues("within").Inc()
	}
	clear(t.heatmapRequests)
}

func (t *Tracker) writeExport() {
	req := export.Request{
		Dir:        t.export.Dir,
		Section:    t.section(),
		Timestamps: t.timestamps,
		Gaze:       t.gaze,
	}
	for i, s := range t.surfaces {
		within, _ := s.Heatmaps()
		es := export.Surface{
			Name:          s.Name,
			RealWorldSize: s.RealWorldSize,
			Heatmap:       within,
		}
		if lc := s.LocationCache(); lc != nil {
			es.Locations = lc.Slots()
		}
		es.VisibleCount, es.VisibleErr = s.VisibleCountInSection(req.Section)
		if i < len(t.gazeBuffer) {
			es.Gaze = t.gazeBuffer[i]
		}
		if i < len(t.fixationBuffer) {
			es.Fixations = t.fixationBuffer[i]
		}
		req.Surfaces = append(req.Surfaces, es)
	}

	dir, err := export.Write(req)
	switch {
	case errors.Is(err, export.ErrExportDir):
		logging.Warn("Export aborted: %v", err)
	case err != nil:
		logging.Warn("Export to %s incomplete: %v", dir, err)
	}
}

// GazeFillerActive reports whether gaze is being mapped in the background.
func (t *Tracker) GazeFillerActive() bool {
	return t.gazeFiller != nil
}
