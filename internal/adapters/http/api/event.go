package api

import (
	"net/http"
)

// EventHandler serves the event catalogue.
type EventHandler struct {
	deps Dependencies
}

// NewEventHandler creates a new event handler.
func NewEventHandler(deps Dependencies) *EventHandler {
	return &EventHandler{deps: deps}
}

// HandleGetEvent handles GET /api/event requests.
func (h *EventHandler) HandleGetEvent(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, h.deps.Event())
}
