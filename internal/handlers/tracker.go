package handlers

import (
	"encoding/json"
	"net/http"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/tracker"
)

// GetStatus returns the tracker status.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	var st tracker.Status
	if err := h.do(r, func(t *tracker.Tracker) { st = t.Status() }); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, st)
}

// SeekRequest moves the playback position.
type SeekRequest struct {
	Frame int `json:"frame"`
}

// SeekResponse holds the markers of the requested frame. Known is false
// while the frame is still queued for detection.
type SeekResponse struct {
	Frame      int              `json:"frame"`
	Known      bool             `json:"known"`
	Filtered   []markers.Marker `json:"filtered"`
	Unfiltered []markers.Marker `json:"unfiltered"`
}

// Seek follows playback to a frame.
func (h *Handlers) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := SeekResponse{Frame: req.Frame}
	var seekErr error
	err := h.do(r, func(t *tracker.Tracker) {
		resp.Filtered, resp.Unfiltered, seekErr = t.SeekTo(req.Frame)
		if seekErr == nil {
			slot, _ := t.FilteredCache().Get(req.Frame)
			resp.Known = slot.Known()
		}
	})
	if err == nil {
		err = seekErr
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// NotifyRequest carries one tracker event.
type NotifyRequest struct {
	Kind    tracker.EventKind `json:"kind"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// Notify applies a parameter change.
func (h *Handlers) Notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ev, err := tracker.DecodeEvent(req.Kind, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	h.notify(w, r, ev)
}

func (h *Handlers) notify(w http.ResponseWriter, r *http.Request, ev tracker.Event) {
	var notifyErr error
	err := h.do(r, func(t *tracker.Tracker) { notifyErr = t.Notify(ev) })
	if err == nil {
		err = notifyErr
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	writeJSONStatus(w, "accepted")
}

// ExportRequest selects the frames and directory of an export. A missing
// range exports the whole recording.
type ExportRequest struct {
	Dir   string           `json:"dir"`
	Range *cachelist.Range `json:"range,omitempty"`
}

// Export starts an export. Files are written once gaze mapping finishes.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := decodeBody(w, r, &req); err != nil || req.Dir == "" {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ev := tracker.ShouldExport{Dir: req.Dir, Range: cachelist.Range{Start: 0, End: 1 << 62}}
	if req.Range != nil {
		ev.Range = *req.Range
	}
	h.notify(w, r, ev)
}
