package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "surface_tracker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Background task metrics
var (
	BackgroundTasksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surface_tracker_background_tasks_running",
			Help: "Number of background tasks currently running, by task kind",
		},
		[]string{"task"},
	)

	BackgroundTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_background_tasks_total",
			Help: "Total number of finished background tasks by kind and outcome",
		},
		[]string{"task", "outcome"}, // "completed", "cancelled", "failed"
	)

	BackgroundItemsProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_background_items_produced_total",
			Help: "Total number of results enqueued by background tasks",
		},
		[]string{"task"},
	)

	BackgroundTaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_background_task_duration_seconds",
			Help:    "Wall time of background tasks from start to finish",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800},
		},
		[]string{"task"},
	)
)

// Marker cache metrics
var (
	MarkerFramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surface_tracker_marker_frames_processed_total",
			Help: "Total number of frames whose marker detections were applied to the cache",
		},
	)

	MarkerFramesUnavailable = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surface_tracker_marker_frames_unavailable_total",
			Help: "Total number of frames that could not be decoded and were cached as empty",
		},
	)

	MarkerCacheFrames = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surface_tracker_marker_cache_frames",
			Help: "Marker cache frame counts by cache and state",
		},
		[]string{"cache", "state"}, // cache: "unfiltered", "filtered"; state: "total", "visited", "positive"
	)

	MarkerDetectionProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "surface_tracker_marker_detection_progress_ratio",
			Help: "Share of frames with known markers in the filtered cache",
		},
	)

	MarkerCacheRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_marker_cache_rebuilds_total",
			Help: "Total number of marker cache rebuilds by reason",
		},
		[]string{"reason"},
	)

	MarkerCacheSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_marker_cache_saves_total",
			Help: "Total number of marker cache saves by status",
		},
		[]string{"status"},
	)

	MarkerCacheSaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_marker_cache_save_duration_seconds",
			Help:    "Time spent encoding and writing the marker cache document",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

// Surface metrics
var (
	SurfacesDefined = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "surface_tracker_surfaces_defined",
			Help: "Number of defined surfaces",
		},
	)

	SurfaceLocationInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surface_tracker_surface_location_invalidations_total",
			Help: "Total number of surface location cache invalidations",
		},
	)

	FillerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filler_runs_total",
			Help: "Total number of gaze/fixation buffer filler starts and replacements",
		},
		[]string{"kind", "event"}, // kind: "gaze", "fixation"; event: "started", "replaced", "completed"
	)

	HeatmapRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_heatmap_renders_total",
			Help: "Total number of heatmap renders by scope",
		},
		[]string{"scope"}, // "within", "across"
	)
)

// Gaze watcher metrics
var (
	GazeWatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_gaze_watcher_events_total",
			Help: "Total number of relevant filesystem events for gaze and fixation files",
		},
		[]string{"event_type"},
	)

	GazeWatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "surface_tracker_gaze_watcher_errors_total",
			Help: "Total number of gaze file watcher errors",
		},
	)
)

// Export metrics
var (
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_exports_total",
			Help: "Total number of export runs by status",
		},
		[]string{"status"},
	)

	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_export_duration_seconds",
			Help:    "Export run duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations by volume and operation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surface_tracker_filesystem_retry_duration_seconds",
			Help:    "Total time spent in a retried filesystem operation including backoff",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemTransientErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surface_tracker_filesystem_transient_errors_total",
			Help: "Total number of transient filesystem errors (ESTALE, EAGAIN, EBUSY)",
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surface_tracker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
