// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration starts from [DefaultConfig], is overlaid by the optional
// JSONC file surface_tracker.jsonc in the recording directory, and finally
// by environment variables:
//
//   - RECORDING_DIR: Recording directory (default: working directory)
//   - VIDEO_FILE: World video inside the recording (default: world.mp4)
//   - PORT: HTTP server port (default: 8080)
//   - TICK_INTERVAL: How often background results are applied (default: 50ms)
//   - CACHE_SAVE_INTERVAL: Marker cache save interval during detection (default: 5s)
//   - MARKER_MIN_PERIMETER: Smallest marker perimeter used for surfaces (default: 60)
//   - MARKER_MIN_CONFIDENCE: Marker ID confidence threshold (default: 0)
//   - INVERTED_MARKERS: Detect white-on-black markers (default: false)
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - LOG_HEALTH_CHECKS: Log probe requests (default: false)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//
// The settings file can also describe the world camera:
//
//	{
//	  // pixels
//	  "camera": {
//	    "resolution": [1280, 720],
//	    "intrinsics": [[829.4, 0, 659.8], [0, 799.6, 373.4], [0, 0, 1]],
//	    "distortion": [-0.43, 0.18, 0.0007, -0.0004, 0.0],
//	  },
//	}
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
