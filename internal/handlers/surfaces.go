package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"surface-tracker/internal/surface"
	"surface-tracker/internal/tracker"
)

// ListSurfaces returns every surface definition.
func (h *Handlers) ListSurfaces(w http.ResponseWriter, r *http.Request) {
	var defs []surface.Definition
	if err := h.do(r, func(t *tracker.Tracker) { defs = t.Definitions() }); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, defs)
}

// AddSurfaceRequest names a new surface.
type AddSurfaceRequest struct {
	Name string `json:"name"`
}

// AddSurface defines a surface from the markers of the current frame.
func (h *Handlers) AddSurface(w http.ResponseWriter, r *http.Request) {
	var req AddSurfaceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSONError(w, "surface name is required", http.StatusBadRequest)
		return
	}

	var def surface.Definition
	var addErr error
	err := h.do(r, func(t *tracker.Tracker) { def, addErr = t.AddSurface(name) })
	if err == nil {
		err = addErr
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, def)
}

// RemoveSurface deletes a surface.
func (h *Handlers) RemoveSurface(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var removeErr error
	err := h.do(r, func(t *tracker.Tracker) { removeErr = t.RemoveSurface(name) })
	if err == nil {
		err = removeErr
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
