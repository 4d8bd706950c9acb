package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"vehicle-sync-service/internal/api/dto"
	"vehicle-sync-service/internal/driver"
	"vehicle-sync-service/internal/ports"
)

// MainView is the driver main view as seen by the HTTP layer.
type MainView interface {
	State(ctx context.Context) (driver.MainViewState, error)
	ShowTripDetails() error
	Back(exhausted func()) bool
	CompleteActiveWaypoint(ctx context.Context, taskID string) error
}

type DriverHandler struct {
	View      MainView
	Legs      ports.LegCache
	VehicleID string
	Logger    *slog.Logger
}

func (h *DriverHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// State returns the main view plus, when cached, the leg to the active stop.
func (h *DriverHandler) State(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	s, err := h.View.State(r.Context())
	if err != nil {
		h.logger().Error("read main view failed", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "view unavailable")
		return
	}

	res := dto.MainViewResponse{
		Step:    s.Step.String(),
		TaskID:  s.TaskID,
		Display: dto.FromDisplayState(s.Display),
	}

	if h.Legs != nil && s.Active != nil {
		leg, ok, err := h.Legs.GetLeg(r.Context(), h.VehicleID, s.Active.Identity())
		if err != nil {
			h.logger().Warn("leg cache read failed", "task_id", s.TaskID, "error", err)
		} else if ok {
			res.Leg = dto.FromLeg(leg)
		}
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *DriverHandler) TripDetails(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.View.ShowTripDetails(); err != nil {
		h.logger().Error("show trip details failed", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "view unavailable")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *DriverHandler) Back(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	restored := h.View.Back(nil)
	writeJSON(w, r, http.StatusOK, dto.BackResponse{Restored: restored})
}

func (h *DriverHandler) CompleteWaypoint(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.CompleteWaypointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	taskID := strings.TrimSpace(req.TaskID)
	if taskID == "" {
		writeError(w, r, http.StatusBadRequest, "task_id is required")
		return
	}

	err := h.View.CompleteActiveWaypoint(r.Context(), taskID)
	switch {
	case errors.Is(err, driver.ErrStaleTask):
		writeError(w, r, http.StatusConflict, "task is no longer active")
	case err != nil:
		h.logger().Error("complete waypoint failed", "task_id", taskID, "error", err)
		writeError(w, r, http.StatusBadGateway, "backend rejected the update")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
