package metrics

import "surface-tracker/internal/filesystem"

// filesystemObserver records reads and atomic writes of recording files
// (marker cache, gaze data, timestamps, exports). Volume labels come from
// the resolver configured at startup, "recording" for the recording
// directory and "unknown" for export targets outside it.
type filesystemObserver struct{}

// NewFilesystemObserver returns the observer passed to filesystem.SetObserver
// when metrics are enabled.
func NewFilesystemObserver() filesystem.Observer {
	return filesystemObserver{}
}

func (filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

// Retry metrics are labelled by operation first ("open", "write", "stat").

func (filesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (filesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (filesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (filesystemObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volume).Observe(durationSeconds)
}

func (filesystemObserver) ObserveTransientError(retryOp, volume string) {
	FilesystemTransientErrors.WithLabelValues(retryOp, volume).Inc()
}
