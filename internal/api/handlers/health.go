package handlers

import (
	"net/http"
)

// HealthHandler is a liveness check that also reports whether the sync loop
// has produced a plan yet.
type HealthHandler struct {
	Synced func() bool
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	synced := h.Synced != nil && h.Synced()
	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "synced": synced})
}
