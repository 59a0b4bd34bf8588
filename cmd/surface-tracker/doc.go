// Package main provides the entry point for the surface tracker service.
//
// The service tracks planar surfaces through square fiducial markers in a
// recorded world video and maps gaze onto them. It serves an HTTP API for
// playback position, parameter changes, surface definitions, heatmaps and
// exports.
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment variables and the optional
//     surface_tracker.jsonc settings file in the recording directory
//  2. World Video: frame timestamps are probed with ffprobe (or read from
//     world_timestamps.msgpack) and frames are decoded with OpenCV
//  3. Surface Definitions: opened from surface_definitions.db
//  4. Tracker: the persisted marker cache is resumed and marker detection
//     continues in the background for every frame not cached yet
//  5. HTTP Server Setup: routes, access logging and metrics middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops the server, then the tracker
//     saves its marker cache
//
// # Background Services
//
//   - Tracker runner: applies background results every TICK_INTERVAL
//   - Gaze watcher: reloads gaze and fixations when their files change
//   - Metrics collector: refreshes marker cache gauges
//
// See [surface-tracker/internal/startup] for the configuration reference.
package main
