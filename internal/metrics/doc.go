// Package metrics provides Prometheus instrumentation for the surface tracker service.
//
// All metrics are prefixed with "surface_tracker_" and registered with the
// default registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Background Task Metrics
//
// Every producer started through the background package reports:
//   - BackgroundTasksRunning: Gauge of running tasks by kind
//   - BackgroundTasksTotal: Counter of finished tasks by kind and outcome
//   - BackgroundItemsProduced: Counter of enqueued results by kind
//   - BackgroundTaskDuration: Histogram of task wall time by kind
//
// ## Marker Cache Metrics
//
//   - MarkerFramesProcessed: Counter of detection results applied to the cache
//   - MarkerCacheFrames: Gauge of frame counts by cache (unfiltered/filtered) and state
//   - MarkerCacheRebuilds: Counter of rebuilds by reason
//   - MarkerCacheSaves: Counter of document saves by status
//   - MarkerCacheSaveDuration: Histogram of save duration
//
// ## Surface, Filler and Export Metrics
//
//   - SurfacesDefined: Gauge of defined surfaces
//   - SurfaceLocationInvalidations: Counter of location cache resets
//   - FillerRunsTotal: Counter of gaze/fixation filler starts, replacements and completions
//   - HeatmapRendersTotal: Counter of heatmap renders by scope
//   - ExportsTotal, ExportDuration: export runs
//
// ## Database and Filesystem Metrics
//
//   - DBQueryTotal, DBQueryDuration: surface definition store queries
//   - Filesystem*: operation durations and retry behaviour, recorded through
//     the filesystem.Observer returned by NewFilesystemObserver
//
// # Collector
//
// [Collector] samples [Stats] from the tracker runner and sets the cache
// gauges and the detection progress ratio:
//
//	collector := metrics.NewCollector(runner, 10*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Detection throughput:
//
//	rate(surface_tracker_marker_frames_processed_total[1m])
//
// Detection progress:
//
//	surface_tracker_marker_cache_frames{cache="unfiltered",state="visited"} /
//	surface_tracker_marker_cache_frames{cache="unfiltered",state="total"}
package metrics
