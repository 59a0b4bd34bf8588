package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/gaze"
	"surface-tracker/internal/heatmap"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/metrics"
	"surface-tracker/internal/surface"
)

// SubDir is created inside the requested export directory.
const SubDir = "surfaces"

// ErrExportDir is returned when the export directory cannot be created.
var ErrExportDir = errors.New("cannot create export directory")

// Surface is the per-surface input of an export.
type Surface struct {
	Name          string
	RealWorldSize [2]float64
	// Locations is a snapshot of the full location cache, nil when the
	// cache is not ready.
	Locations []cachelist.Slot[surface.Location]
	// VisibleCount is only used when VisibleErr is nil.
	VisibleCount int
	VisibleErr   error
	// Gaze and Fixations hold one entry per frame of the section.
	Gaze      [][]surface.GazeOnSurface
	Fixations [][]surface.GazeOnSurface
	Heatmap   image.Image
}

// Request describes one export run.
type Request struct {
	Dir        string
	Section    cachelist.Range
	Timestamps []float64
	Gaze       *gaze.Stream
	Surfaces   []Surface
}

// Write produces the CSV set and heatmaps under <Dir>/surfaces and returns
// that directory.
func Write(req Request) (string, error) {
	start := time.Now()
	dir := filepath.Join(req.Dir, SubDir)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		logging.Info("Will overwrite previous export in %s", dir)
	} else if err := os.Mkdir(dir, 0755); err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w %s: %v", ErrExportDir, dir, err)
	}

	logging.Info("Exporting surface metrics for frames [%d, %d) to %s", req.Section.Start, req.Section.End, dir)

	err := errors.Join(
		writeVisibility(dir, req),
		writeGazeDistribution(dir, req),
		writeSurfaceEvents(dir, req),
	)
	for _, s := range req.Surfaces {
		name := "_" + strings.ReplaceAll(s.Name, "/", "")
		err = errors.Join(err,
			writePositions(dir, name, req, s),
			writeGazeOnSurface(dir, name, req, s),
			writeFixationsOnSurface(dir, name, req, s),
			writeHeatmap(dir, name, s),
		)
		logging.Info("Saved surface gaze and fixation data for %q", s.Name)
	}

	metrics.ExportDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		return dir, err
	}
	metrics.ExportsTotal.WithLabelValues("success").Inc()
	logging.Info("Done exporting surface data in %v", time.Since(start))
	return dir, nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	logging.Debug("Created %s (%d rows)", filepath.Base(path), len(rows))
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func timestampAt(ts []float64, i int) string {
	if i < 0 || i >= len(ts) {
		return ""
	}
	return ftoa(ts[i])
}

func formatHomography(h surface.Homography) string {
	rows := make([]string, 3)
	for r := range 3 {
		rows[r] = fmt.Sprintf("[%s %s %s]", ftoa(h[r*3]), ftoa(h[r*3+1]), ftoa(h[r*3+2]))
	}
	return "[" + strings.Join(rows, " ") + "]"
}

func writeVisibility(dir string, req Request) error {
	rows := [][]string{
		{"frame_count", strconv.Itoa(req.Section.Len())},
		{},
		{"surface_name", "visible_frame_count"},
	}
	for _, s := range req.Surfaces {
		if s.VisibleErr != nil {
			logging.Warn("Skipping surface_visibility.csv: %v. Wait for the location cache to fill.", s.VisibleErr)
			return nil
		}
		rows = append(rows, []string{s.Name, strconv.Itoa(s.VisibleCount)})
	}
	return writeCSV(filepath.Join(dir, "surface_visibility.csv"), rows)
}

// sectionWindow returns the timestamps from the first to the last frame of
// the section, both included.
func sectionWindow(ts []float64, r cachelist.Range) (start, end float64, ok bool) {
	r = r.Intersect(cachelist.Range{Start: 0, End: len(ts)})
	if r.Len() == 0 {
		return 0, 0, false
	}
	return ts[r.Start], math.Nextafter(ts[r.End-1], math.Inf(1)), true
}

func writeGazeDistribution(dir string, req Request) error {
	var inSection []gaze.Event
	if start, end, ok := sectionWindow(req.Timestamps, req.Section); ok {
		inSection = req.Gaze.Window(start, end)
	}

	notOnAny := make(map[float64]struct{}, len(inSection))
	for _, e := range inSection {
		notOnAny[e.Timestamp] = struct{}{}
	}

	rows := [][]string{
		{"total_gaze_point_count", strconv.Itoa(len(inSection))},
		{},
		{"surface_name", "gaze_count"},
	}
	for _, s := range req.Surfaces {
		onSurf := make(map[float64]struct{})
		for _, frame := range s.Gaze {
			for _, g := range frame {
				if g.OnSurf {
					onSurf[g.Timestamp] = struct{}{}
				}
			}
		}
		for ts := range onSurf {
			delete(notOnAny, ts)
		}
		rows = append(rows, []string{s.Name, strconv.Itoa(len(onSurf))})
	}
	rows = append(rows, []string{"not_on_any_surface", strconv.Itoa(len(notOnAny))})

	return writeCSV(filepath.Join(dir, "surface_gaze_distribution.csv"), rows)
}

type surfaceEvent struct {
	frame int
	name  string
	kind  string
}

func writeSurfaceEvents(dir string, req Request) error {
	var events []surfaceEvent
	for _, s := range req.Surfaces {
		if s.Locations == nil {
			continue
		}
		ranges := cachelist.FromSlots(s.Locations, surface.IsDetected).PositiveRanges()
		for _, r := range ranges {
			events = append(events,
				surfaceEvent{frame: r.Start, name: s.Name, kind: "enter"},
				surfaceEvent{frame: r.End, name: s.Name, kind: "exit"},
			)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].frame < events[j].frame })

	rows := [][]string{{"world_index", "world_timestamp", "surface_name", "event_type"}}
	for _, e := range events {
		// An exit past the last frame is reported at the last frame.
		frame := min(e.frame, len(req.Timestamps)-1)
		rows = append(rows, []string{strconv.Itoa(frame), timestampAt(req.Timestamps, frame), e.name, e.kind})
	}
	return writeCSV(filepath.Join(dir, "surface_events.csv"), rows)
}

func writePositions(dir, name string, req Request, s Surface) error {
	rows := [][]string{{"world_index", "world_timestamp", "img_to_surf_trans", "surf_to_img_trans", "num_detected_markers"}}
	end := min(req.Section.End, len(s.Locations))
	for i := max(req.Section.Start, 0); i < end; i++ {
		loc, ok := s.Locations[i].Get()
		if !ok || !loc.Detected {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			timestampAt(req.Timestamps, i),
			formatHomography(loc.ImgToSurf),
			formatHomography(loc.SurfToImg),
			strconv.Itoa(loc.NumDetectedMarkers),
		})
	}
	return writeCSV(filepath.Join(dir, "surf_positions"+name+".csv"), rows)
}

func writeGazeOnSurface(dir, name string, req Request, s Surface) error {
	rows := [][]string{{"world_timestamp", "world_index", "gaze_timestamp", "x_norm", "y_norm", "x_scaled", "y_scaled", "on_surf", "confidence"}}
	for offset, frame := range s.Gaze {
		idx := req.Section.Start + offset
		for _, g := range frame {
			rows = append(rows, []string{
				timestampAt(req.Timestamps, idx),
				strconv.Itoa(idx),
				ftoa(g.Timestamp),
				ftoa(g.SurfNormPos.X()),
				ftoa(g.SurfNormPos.Y()),
				ftoa(g.SurfNormPos.X() * s.RealWorldSize[0]),
				ftoa(g.SurfNormPos.Y() * s.RealWorldSize[1]),
				strconv.FormatBool(g.OnSurf),
				ftoa(g.Confidence),
			})
		}
	}
	return writeCSV(filepath.Join(dir, "gaze_positions_on_surface"+name+".csv"), rows)
}

// dedupeFixations keeps the last mapping of every fixation id, in order of
// first appearance.
func dedupeFixations(frame []surface.GazeOnSurface) []surface.GazeOnSurface {
	pos := make(map[int]int, len(frame))
	var out []surface.GazeOnSurface
	for _, f := range frame {
		if i, ok := pos[f.ID]; ok {
			out[i] = f
			continue
		}
		pos[f.ID] = len(out)
		out = append(out, f)
	}
	return out
}

func writeFixationsOnSurface(dir, name string, req Request, s Surface) error {
	rows := [][]string{{"world_timestamp", "world_index", "fixation_id", "start_timestamp", "duration", "norm_pos_x", "norm_pos_y", "x_scaled", "y_scaled", "on_surf", "confidence"}}
	for offset, frame := range s.Fixations {
		idx := req.Section.Start + offset
		for _, f := range dedupeFixations(frame) {
			rows = append(rows, []string{
				timestampAt(req.Timestamps, idx),
				strconv.Itoa(idx),
				strconv.Itoa(f.ID),
				ftoa(f.Timestamp),
				ftoa(f.Duration),
				ftoa(f.SurfNormPos.X()),
				ftoa(f.SurfNormPos.Y()),
				ftoa(f.SurfNormPos.X() * s.RealWorldSize[0]),
				ftoa(f.SurfNormPos.Y() * s.RealWorldSize[1]),
				strconv.FormatBool(f.OnSurf),
				ftoa(f.Confidence),
			})
		}
	}
	return writeCSV(filepath.Join(dir, "fixations_on_surface"+name+".csv"), rows)
}

func writeHeatmap(dir, name string, s Surface) error {
	if s.Heatmap == nil {
		return nil
	}
	path := filepath.Join(dir, "heatmap"+name+".png")
	if err := heatmap.SavePNG(path, s.Heatmap); err != nil {
		return fmt.Errorf("save heatmap %s: %w", path, err)
	}
	logging.Debug("Saved heatmap %s", path)
	return nil
}
