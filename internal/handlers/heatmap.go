package handlers

import (
	"bytes"
	"image"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"surface-tracker/internal/heatmap"
	"surface-tracker/internal/logging"
	"surface-tracker/internal/tracker"
)

const maxHeatmapWidth = 2048

// GetHeatmap serves the heatmap of a surface as PNG. Query parameters:
// mode=within|across (default within) and width in pixels.
func (h *Handlers) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	query := r.URL.Query()

	across := false
	switch query.Get("mode") {
	case "", "within":
	case "across":
		across = true
	default:
		writeJSONError(w, "mode must be within or across", http.StatusBadRequest)
		return
	}

	width := 0
	if v := query.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHeatmapWidth {
			writeJSONError(w, "invalid width", http.StatusBadRequest)
			return
		}
		width = n
	}

	var img image.Image
	var aspect float64
	var mapErr error
	err := h.do(r, func(t *tracker.Tracker) {
		img, mapErr = t.Heatmap(name, across)
		if s, err := t.Surface(name); err == nil {
			aspect = s.RealWorldSize[1] / s.RealWorldSize[0]
		}
	})
	if err == nil {
		err = mapErr
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if width > 0 {
		img = heatmap.Upscale(img, width, max(1, int(float64(width)*aspect)))
	}

	var buf bytes.Buffer
	if err := heatmap.EncodePNG(&buf, img); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Debug("Writing heatmap of %q: %v", name, err)
	}
}
