package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surface-tracker/internal/middleware"
	"surface-tracker/internal/tracker"
)

// Runner executes functions on the tracker's control goroutine.
type Runner interface {
	Do(ctx context.Context, fn func(*tracker.Tracker)) error
}

// requestTimeout bounds how long a request waits for the control goroutine.
const requestTimeout = 10 * time.Second

type Handlers struct {
	runner    Runner
	startTime time.Time
	ready     func() bool
}

// New creates the handlers. ready reports whether the runner loop is up.
func New(runner Runner, ready func() bool) *Handlers {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Handlers{
		runner:    runner,
		startTime: time.Now(),
		ready:     ready,
	}
}

// do runs fn on the control goroutine with the request deadline.
func (h *Handlers) do(r *http.Request, fn func(*tracker.Tracker)) error {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	return h.runner.Do(ctx, fn)
}

// Router builds the HTTP routes.
func (h *Handlers) Router(logConfig middleware.LoggingConfig, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logger(logConfig))
	if metricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/seek", h.Seek).Methods("POST")
	api.HandleFunc("/notify", h.Notify).Methods("POST")
	api.HandleFunc("/surfaces", h.ListSurfaces).Methods("GET")
	api.HandleFunc("/surfaces", h.AddSurface).Methods("POST")
	api.HandleFunc("/surfaces/{name}", h.RemoveSurface).Methods("DELETE")
	api.HandleFunc("/heatmap/{name}", h.GetHeatmap).Methods("GET")
	api.HandleFunc("/export", h.Export).Methods("POST")

	return r
}
