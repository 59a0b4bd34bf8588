// Package handlers provides the HTTP API of the surface tracker.
//
// It includes handlers for:
//   - Tracker status and playback position
//   - Parameter change notifications
//   - Surface definitions
//   - Heatmap images and exports
//   - Health checks, version and Prometheus metrics
//
// Every tracker access goes through [Runner], so requests never touch
// tracker state outside its control goroutine.
package handlers
