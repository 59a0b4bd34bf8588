package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"surface-tracker/internal/background"
	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/gaze"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/metrics"
	"surface-tracker/internal/persistence"
	"surface-tracker/internal/surface"
	"surface-tracker/internal/video"
)

// DefaultCacheSaveInterval is how often a running detection persists the
// marker cache.
const DefaultCacheSaveInterval = 5 * time.Second

var (
	// ErrSurfaceExists is returned when adding a surface with a taken name.
	ErrSurfaceExists = errors.New("surface already exists")
	// ErrSurfaceNotFound is returned for unknown surface names.
	ErrSurfaceNotFound = errors.New("surface not found")
	// ErrFrameNotProcessed is returned when markers of a frame are not known yet.
	ErrFrameNotProcessed = errors.New("markers of frame not detected yet")
)

// Config holds the tracker parameters.
type Config struct {
	RecDir            string
	MinPerimeter      float64
	MinConfidence     float64
	InvertedMarkers   bool
	CacheSaveInterval time.Duration
	Camera            surface.CameraModel
}

// SurfaceStore persists surface definitions.
type SurfaceStore interface {
	ListSurfaces(ctx context.Context) ([]surface.Definition, error)
	ReplaceSurfaces(ctx context.Context, defs []surface.Definition) error
}

// Deps are the collaborators of a Tracker. Store and Now are optional.
type Deps struct {
	Source   video.Source
	Detector markers.Detector
	Store    SurfaceStore
	Now      func() time.Time
}

// Tracker owns the marker caches, the surfaces and every background task
// feeding them. It is not safe for concurrent use: a single control
// goroutine (see Runner) calls all of its methods.
type Tracker struct {
	cfg      Config
	src      video.Source
	detector markers.Detector
	store    SurfaceStore
	now      func() time.Time

	timestamps []float64
	unfiltered *cachelist.Cache[[]markers.Marker]
	filtered   *cachelist.Cache[[]markers.Marker]
	producer   *background.Task[background.Result[[]markers.Marker]]
	cursor     *background.SeekCursor
	current    int

	surfaces        []*surface.Surface
	heatmapRequests map[uuid.UUID]struct{}

	trim      cachelist.Range
	gaze      *gaze.Stream
	fixations *gaze.Stream

	gazeFiller     *background.Task[SurfaceGaze]
	fixationFiller *background.Task[SurfaceGaze]
	gazeBuffer     [][][]surface.GazeOnSurface
	fixationBuffer [][][]surface.GazeOnSurface
	export         *ShouldExport

	lastSave time.Time
}

// New loads the persisted state of a recording and starts detecting
// markers on every frame that is not cached yet.
func New(cfg Config, deps Deps) (*Tracker, error) {
	if deps.Source == nil || deps.Detector == nil {
		return nil, errors.New("tracker needs a video source and a marker detector")
	}
	if cfg.CacheSaveInterval <= 0 {
		cfg.CacheSaveInterval = DefaultCacheSaveInterval
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	n := deps.Source.FrameCount()
	timestamps := deps.Source.Timestamps()
	if len(timestamps) != n {
		return nil, fmt.Errorf("video has %d frames but %d timestamps", n, len(timestamps))
	}

	t := &Tracker{
		cfg:             cfg,
		src:             deps.Source,
		detector:        deps.Detector,
		store:           deps.Store,
		now:             now,
		timestamps:      timestamps,
		cursor:          background.NewSeekCursor(),
		heatmapRequests: make(map[uuid.UUID]struct{}),
		trim:            cachelist.Range{Start: 0, End: n},
	}

	if err := t.loadSurfaces(); err != nil {
		return nil, err
	}
	t.loadGaze()
	t.loadMarkerCache()
	t.lastSave = now()

	logging.Info("Tracker ready: %d frames, %d surfaces, %d gaze events", n, len(t.surfaces), t.gaze.Len())
	return t, nil
}

func (t *Tracker) loadSurfaces() error {
	if t.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	defs, err := t.store.ListSurfaces(ctx)
	if err != nil {
		return fmt.Errorf("load surface definitions: %w", err)
	}
	for _, def := range defs {
		t.surfaces = append(t.surfaces, surface.New(def))
	}
	return nil
}

func (t *Tracker) loadGaze() {
	var err error
	if t.gaze, err = gaze.Load(t.cfg.RecDir, gaze.KindGaze); err != nil {
		logging.Warn("Could not load gaze positions: %v", err)
		t.gaze = gaze.NewStream(nil)
	}
	if t.fixations, err = gaze.Load(t.cfg.RecDir, gaze.KindFixation); err != nil {
		logging.Warn("Could not load fixations: %v", err)
		t.fixations = gaze.NewStream(nil)
	}
}

func (t *Tracker) loadMarkerCache() {
	n := t.src.FrameCount()
	doc, err := persistence.Load(t.cfg.RecDir)

	switch {
	case errors.Is(err, persistence.ErrNotFound):
		logging.Info("No marker cache found, detecting markers in %d frames", n)
		t.rebuild("startup", nil)
	case errors.Is(err, persistence.ErrVersionMismatch):
		logging.Info("Marker detector changed (%v). Rebuilding the marker cache.", err)
		t.cfg.InvertedMarkers = doc.InvertedMarkers
		t.rebuild("version_mismatch", nil)
	case err != nil:
		logging.Warn("Could not load marker cache: %v. Rebuilding.", err)
		t.rebuild("startup", nil)
	case len(doc.MarkerCacheUnfiltered) != n:
		logging.Warn("Marker cache covers %d frames but the video has %d. Rebuilding.", len(doc.MarkerCacheUnfiltered), n)
		t.cfg.InvertedMarkers = doc.InvertedMarkers
		t.rebuild("startup", nil)
	default:
		t.cfg.InvertedMarkers = doc.InvertedMarkers
		t.rebuild("startup", doc.MarkerCacheUnfiltered)
		logging.Info("Resuming marker cache: %d of %d frames left", t.unfiltered.Remaining(), n)
	}
}

// Recalculate cancels the running detection and starts a new one. With
// previous, detection resumes from those slots. Without it every cached
// detection and every surface location is discarded.
func (t *Tracker) Recalculate(previous []cachelist.Slot[[]markers.Marker]) {
	t.rebuild("detection_params", previous)
}

func (t *Tracker) rebuild(reason string, previous []cachelist.Slot[[]markers.Marker]) {
	if t.producer != nil {
		t.producer.Cancel()
		t.producer = nil
	}

	if previous == nil {
		for _, s := range t.surfaces {
			s.InvalidateLocationCache()
		}
		t.unfiltered = markers.NewCache(t.src.FrameCount())
	} else {
		t.unfiltered = markers.CacheFromSlots(previous)
	}
	t.refilter()
	metrics.MarkerCacheRebuilds.WithLabelValues(reason).Inc()
	t.startProducer()
}

// startProducer detects markers on every frame the filtered cache does
// not know yet.
func (t *Tracker) startProducer() {
	minPerimeter, inverted, detector := float64(markers.CacheMinPerimeter), t.cfg.InvertedMarkers, t.detector
	compute := func(f video.Frame) []markers.Marker {
		return detector.Detect(f, minPerimeter, inverted)
	}
	t.producer = background.NewVideoProcessor[[]markers.Marker]("marker_detection", t.src, compute, t.filtered.KnownMask(), t.cursor)
}

func (t *Tracker) refilter() {
	slots := t.unfiltered.Slots()
	for i, s := range slots {
		slots[i] = markers.FilterSlot(s, t.cfg.MinPerimeter, t.cfg.MinConfidence)
	}
	t.filtered = markers.CacheFromSlots(slots)
}

// UpdateFilteredMarkers re-applies the current filter to every cached
// detection. Nothing is decoded again.
func (t *Tracker) UpdateFilteredMarkers() {
	t.refilter()
	metrics.MarkerCacheRebuilds.WithLabelValues("refilter").Inc()
	logging.Debug("Re-filtered marker cache: perimeter >= %v, confidence > %v", t.cfg.MinPerimeter, t.cfg.MinConfidence)
}

// Tick applies all finished background work. It must be called
// periodically from the control goroutine.
func (t *Tracker) Tick() {
	t.drainProducer()
	t.tickSurfaces()
	t.drainFillers()

	if t.producer != nil && t.now().Sub(t.lastSave) > t.cfg.CacheSaveInterval {
		t.saveMarkerCache()
	}
}

func (t *Tracker) drainProducer() {
	if t.producer == nil {
		return
	}

	state := t.producer.State()
	for _, r := range t.producer.Fetch() {
		if r.Unavailable {
			metrics.MarkerFramesUnavailable.Inc()
		}
		t.apply(r.Index, r.Value)
	}

	switch state {
	case background.StateCompleted:
		t.producer = nil
		logging.Info("Marker detection complete for %d frames", t.filtered.Len())
		for _, s := range t.surfaces {
			t.heatmapRequests[s.UID] = struct{}{}
		}
		t.fillGazeBuffer()
		t.saveMarkerCache()
		t.saveSurfaceDefinitions()
	case background.StateFailed:
		logging.Error("Marker detection stopped with %d frames left, seek to an unknown frame to retry: %v", t.unfiltered.Remaining(), t.producer.Err())
		t.producer = nil
		t.saveMarkerCache()
	}
}

func (t *Tracker) apply(index int, detected []markers.Marker) {
	detected = markers.RemoveDuplicates(detected)
	if err := t.unfiltered.Update(index, markers.Slot(detected)); err != nil {
		logging.Warn("Dropping detection result: %v", err)
		return
	}
	filtered := markers.Slot(markers.Filter(detected, t.cfg.MinPerimeter, t.cfg.MinConfidence))
	if err := t.filtered.Update(index, filtered); err != nil {
		logging.Warn("Dropping filtered result: %v", err)
		return
	}
	for _, s := range t.surfaces {
		s.UpdateLocationCache(index, t.filtered, t.cfg.Camera)
	}
	metrics.MarkerFramesProcessed.Inc()
}

func (t *Tracker) tickSurfaces() {
	refill := false
	for _, s := range t.surfaces {
		if s.LocationCache() == nil {
			s.UpdateLocationCache(t.current, t.filtered, t.cfg.Camera)
		}
		active := s.LocationFillerActive()
		s.Tick()
		if active && !s.LocationFillerActive() {
			t.heatmapRequests[s.UID] = struct{}{}
			refill = true
		}
	}
	// A running detection refills once it completes.
	if refill && t.producer == nil {
		t.fillGazeBuffer()
	}
}

// SeekTo follows playback to index. When the markers of that frame are
// not known yet, detection continues from there and nil is returned.
func (t *Tracker) SeekTo(index int) (filtered, unfiltered []markers.Marker, err error) {
	slot, err := t.filtered.Get(index)
	if err != nil {
		return nil, nil, err
	}
	t.current = index

	if !slot.Known() {
		t.cursor.Seek(index)
		if t.producer == nil {
			logging.Info("Restarting marker detection at frame %d", index)
			t.startProducer()
		}
		return nil, nil, nil
	}
	raw, _ := t.unfiltered.Get(index)
	filtered, _ = slot.Get()
	unfiltered, _ = raw.Get()
	return filtered, unfiltered, nil
}

// Notify applies an event.
func (t *Tracker) Notify(ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil", ErrUnknownEvent)
	}
	ev = deref(ev)
	h, ok := handlers[ev.Kind()]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind())
	}
	logging.Debug("Handling %s", ev.Kind())
	return h(t, ev)
}

var handlers = map[EventKind]func(*Tracker, Event) error{
	KindMarkerDetectionParamsChanged: func(t *Tracker, ev Event) error {
		t.cfg.InvertedMarkers = ev.(MarkerDetectionParamsChanged).InvertedMarkers
		t.rebuild("detection_params", nil)
		return nil
	},
	KindMarkerMinPerimeterChanged: func(t *Tracker, ev Event) error {
		e := ev.(MarkerMinPerimeterChanged)
		t.cfg.MinPerimeter, t.cfg.MinConfidence = e.MinPerimeter, e.MinConfidence
		t.UpdateFilteredMarkers()
		for _, s := range t.surfaces {
			s.InvalidateLocationCache()
		}
		return nil
	},
	KindHeatmapParamsChanged: func(t *Tracker, ev Event) error {
		e := ev.(HeatmapParamsChanged)
		s, _ := t.find(e.Name)
		if s == nil {
			return fmt.Errorf("%w: %q", ErrSurfaceNotFound, e.Name)
		}
		if e.Smoothness > 0 {
			s.HeatmapSmoothness = e.Smoothness
			t.saveSurfaceDefinitions()
		}
		t.requestWithin(s)
		t.fillGazeBuffer()
		return nil
	},
	KindTrimIndicesChanged: func(t *Tracker, ev Event) error {
		e := ev.(TrimIndicesChanged)
		n := t.src.FrameCount()
		left := min(max(e.Left, 0), n)
		t.trim = cachelist.Range{Start: left, End: min(max(e.Right, left), n)}
		for _, s := range t.surfaces {
			t.requestWithin(s)
		}
		t.fillGazeBuffer()
		return nil
	},
	KindSurfacesChanged: func(t *Tracker, ev Event) error {
		e := ev.(SurfacesChanged)
		s, _ := t.find(e.Name)
		if s == nil {
			return fmt.Errorf("%w: %q", ErrSurfaceNotFound, e.Name)
		}
		s.InvalidateLocationCache()
		t.requestWithin(s)
		t.saveSurfaceDefinitions()
		t.fillGazeBuffer()
		return nil
	},
	KindShouldExport: func(t *Tracker, ev Event) error {
		e := ev.(ShouldExport)
		t.export = &e
		t.fillGazeBuffer()
		return nil
	},
	KindGazePositionsChanged: func(t *Tracker, _ Event) error {
		t.loadGaze()
		for _, s := range t.surfaces {
			t.requestWithin(s)
		}
		t.fillGazeBuffer()
		return nil
	},
}

// requestWithin shows a placeholder until the heatmap of s is recomputed.
func (t *Tracker) requestWithin(s *surface.Surface) {
	s.SetHeatmaps(placeholder(), nil)
	t.heatmapRequests[s.UID] = struct{}{}
}

func (t *Tracker) find(name string) (*surface.Surface, int) {
	for i, s := range t.surfaces {
		if s.Name == name {
			return s, i
		}
	}
	return nil, -1
}

// AddSurface defines a new surface from the markers of the current frame.
func (t *Tracker) AddSurface(name string) (surface.Definition, error) {
	if s, _ := t.find(name); s != nil {
		return surface.Definition{}, fmt.Errorf("%w: %q", ErrSurfaceExists, name)
	}
	slot, err := t.filtered.Get(t.current)
	if err != nil {
		return surface.Definition{}, err
	}
	if !slot.Known() {
		return surface.Definition{}, fmt.Errorf("%w: %d", ErrFrameNotProcessed, t.current)
	}
	ms, _ := slot.Get()

	s, err := surface.DefineFromMarkers(name, ms, t.cfg.Camera)
	if err != nil {
		return surface.Definition{}, err
	}
	t.surfaces = append(t.surfaces, s)
	logging.Info("Added surface %q with %d markers", name, len(s.RegisteredMarkers))

	t.requestWithin(s)
	t.saveSurfaceDefinitions()
	t.fillGazeBuffer()
	return s.Definition, nil
}

// RemoveSurface deletes a surface and its background work.
func (t *Tracker) RemoveSurface(name string) error {
	s, i := t.find(name)
	if s == nil {
		return fmt.Errorf("%w: %q", ErrSurfaceNotFound, name)
	}
	s.Close()
	delete(t.heatmapRequests, s.UID)
	t.surfaces = append(t.surfaces[:i], t.surfaces[i+1:]...)
	logging.Info("Removed surface %q", name)

	t.saveSurfaceDefinitions()
	t.fillGazeBuffer()
	return nil
}

// Definitions returns copies of all surface definitions.
func (t *Tracker) Definitions() []surface.Definition {
	defs := make([]surface.Definition, len(t.surfaces))
	for i, s := range t.surfaces {
		defs[i] = s.Definition
	}
	return defs
}

// Surface returns the surface called name.
func (t *Tracker) Surface(name string) (*surface.Surface, error) {
	s, _ := t.find(name)
	if s == nil {
		return nil, fmt.Errorf("%w: %q", ErrSurfaceNotFound, name)
	}
	return s, nil
}

// UnfilteredCache returns the cache of raw detections.
func (t *Tracker) UnfilteredCache() *cachelist.Cache[[]markers.Marker] { return t.unfiltered }

// FilteredCache returns the cache of filtered detections.
func (t *Tracker) FilteredCache() *cachelist.Cache[[]markers.Marker] { return t.filtered }

func (t *Tracker) saveMarkerCache() {
	t.lastSave = t.now()
	doc := &persistence.Document{
		Version:               persistence.Version,
		MarkerCacheUnfiltered: t.unfiltered.Slots(),
		InvertedMarkers:       t.cfg.InvertedMarkers,
	}
	if err := persistence.Save(t.cfg.RecDir, doc); err != nil {
		logging.Warn("Could not save marker cache, will retry: %v", err)
	}
}

func (t *Tracker) saveSurfaceDefinitions() {
	if t.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.store.ReplaceSurfaces(ctx, t.Definitions()); err != nil {
		logging.Warn("Could not save surface definitions: %v", err)
	}
}

// Close stops all background work and saves the marker cache.
func (t *Tracker) Close() {
	if t.producer != nil {
		t.producer.Cancel()
		t.producer = nil
	}
	t.cancelFillers()
	for _, s := range t.surfaces {
		s.Close()
	}
	t.saveMarkerCache()
}
