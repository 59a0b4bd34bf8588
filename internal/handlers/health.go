package handlers

import (
	"net/http"
	"runtime"
	"time"

	"surface-tracker/internal/startup"
	"surface-tracker/internal/tracker"
)

const (
	statusHealthy   = "healthy"
	statusDetecting = "detecting"
	statusStopped   = "stopped"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Marker cache progress
	FrameCount      int  `json:"frameCount"`
	FramesRemaining int  `json:"framesRemaining"`
	Detecting       bool `json:"detecting"`
	Surfaces        int  `json:"surfaces"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Ready:        h.ready(),
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	var st tracker.Status
	err := h.do(r, func(t *tracker.Tracker) { st = t.Status() })

	switch {
	case err != nil:
		response.Status = statusStopped
		response.Ready = false
	case st.DetectionRunning:
		response.Status = statusDetecting
	default:
		response.Status = statusHealthy
	}
	response.FrameCount = st.FrameCount
	response.FramesRemaining = st.Remaining
	response.Detecting = st.DetectionRunning
	response.Surfaces = len(st.Surfaces)

	w.Header().Set("Content-Type", "application/json")
	if !response.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 once the tracker loop accepts requests
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready() {
		writeJSONStatus(w, "ready")
		return
	}
	writeJSONError(w, "not_ready", http.StatusServiceUnavailable)
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, startup.GetBuildInfo())
}
