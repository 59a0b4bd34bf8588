package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Background tasks ---
	for _, task := range []string{"marker_detection", "surface_location", "gaze_mapping", "fixation_mapping"} {
		BackgroundTasksRunning.WithLabelValues(task)
		BackgroundItemsProduced.WithLabelValues(task)
		BackgroundTaskDuration.WithLabelValues(task)
		for _, outcome := range []string{"completed", "cancelled", "failed"} {
			BackgroundTasksTotal.WithLabelValues(task, outcome)
		}
	}

	// --- Marker cache ---
	for _, cache := range []string{"unfiltered", "filtered"} {
		for _, state := range []string{"total", "visited", "positive"} {
			MarkerCacheFrames.WithLabelValues(cache, state)
		}
	}
	for _, reason := range []string{"startup", "version_mismatch", "detection_params", "refilter"} {
		MarkerCacheRebuilds.WithLabelValues(reason)
	}
	for _, status := range []string{"success", "error"} {
		MarkerCacheSaves.WithLabelValues(status)
		ExportsTotal.WithLabelValues(status)
	}
	ExportsTotal.WithLabelValues("aborted")

	// --- Fillers and heatmaps ---
	for _, kind := range []string{"gaze", "fixation"} {
		for _, event := range []string{"started", "replaced", "completed"} {
			FillerRunsTotal.WithLabelValues(kind, event)
		}
	}
	for _, scope := range []string{"within", "across"} {
		HeatmapRendersTotal.WithLabelValues(scope)
	}

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"recording", "export", "unknown"}
	fsOps := []string{"read", "write", "stat"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	for _, op := range []string{"stat", "open", "write"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemTransientErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "list_surfaces", "replace_surfaces",
		"get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
