package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/surface"
	"surface-tracker/internal/tracker"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrSurfaceNotFound), errors.Is(err, tracker.ErrNoHeatmap):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrSurfaceExists):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrUnknownEvent),
		errors.Is(err, cachelist.ErrIndexOutOfRange),
		errors.Is(err, surface.ErrNoMarkers),
		errors.Is(err, surface.ErrDegenerate):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrFrameNotProcessed):
		return http.StatusConflict
	case errors.Is(err, tracker.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	}
	writeJSONError(w, err.Error(), code)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
