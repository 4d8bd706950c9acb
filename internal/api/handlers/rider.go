package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"vehicle-sync-service/internal/api/dto"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/rider"
)

// PreTrip is the rider booking flow as seen by the HTTP layer.
type PreTrip interface {
	State(ctx context.Context) (rider.PreTripState, error)
	SetPickup(p domain.Coordinates) error
	SetDropOff(p domain.Coordinates) error
	SetPickupAddress(ctx context.Context, address string) error
	SetDropOffAddress(ctx context.Context, address string) error
	SelectVehicle(selection string, passengers int) error
	Confirm(ctx context.Context) (string, error)
	Back(exhausted func()) bool
	Reset() error
}

// VehicleDisplay exposes the watched vehicle's latest display state.
type VehicleDisplay interface {
	Display() (domain.DisplayState, bool)
}

type RiderHandler struct {
	Flow    PreTrip
	Vehicle VehicleDisplay
	Logger  *slog.Logger
}

func (h *RiderHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *RiderHandler) Draft(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	h.writeDraft(w, r, http.StatusOK)
}

func (h *RiderHandler) writeDraft(w http.ResponseWriter, r *http.Request, status int) {
	s, err := h.Flow.State(r.Context())
	if err != nil {
		h.logger().Error("read draft failed", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "flow unavailable")
		return
	}

	res := dto.PreTripResponse{
		Step:             s.Step.String(),
		PassengerCount:   s.PassengerCount,
		VehicleSelection: s.VehicleSelection,
		TripID:           s.TripID,
	}
	if s.Pickup != nil {
		p := dto.FromCoordinates(*s.Pickup)
		res.Pickup = &p
	}
	if s.DropOff != nil {
		p := dto.FromCoordinates(*s.DropOff)
		res.DropOff = &p
	}
	writeJSON(w, r, status, res)
}

func (h *RiderHandler) Pickup(w http.ResponseWriter, r *http.Request) {
	h.location(w, r, h.Flow.SetPickup, h.Flow.SetPickupAddress)
}

func (h *RiderHandler) DropOff(w http.ResponseWriter, r *http.Request) {
	h.location(w, r, h.Flow.SetDropOff, h.Flow.SetDropOffAddress)
}

func (h *RiderHandler) location(
	w http.ResponseWriter,
	r *http.Request,
	byPoint func(domain.Coordinates) error,
	byAddress func(context.Context, string) error,
) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch addr := strings.TrimSpace(req.Address); {
	case req.Lat != nil && req.Lng != nil:
		if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			writeError(w, r, http.StatusBadRequest, "lat/lng out of range")
			return
		}
		err = byPoint(dto.Point{Lat: *req.Lat, Lng: *req.Lng}.Coordinates())
	case addr != "":
		err = byAddress(r.Context(), addr)
	default:
		writeError(w, r, http.StatusBadRequest, "lat and lng or address is required")
		return
	}

	if err != nil {
		if errors.Is(err, rider.ErrNoGeocoder) {
			writeError(w, r, http.StatusBadRequest, "address lookup is not available")
			return
		}
		h.logger().Warn("set location failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusUnprocessableEntity, "could not resolve location")
		return
	}
	h.writeDraft(w, r, http.StatusOK)
}

func (h *RiderHandler) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.VehicleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.Flow.SelectVehicle(strings.TrimSpace(req.Selection), req.Passengers); err != nil {
		if errors.Is(err, rider.ErrInvalidRequest) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "flow unavailable")
		return
	}
	h.writeDraft(w, r, http.StatusOK)
}

func (h *RiderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	id, err := h.Flow.Confirm(r.Context())
	switch {
	case errors.Is(err, rider.ErrNotReady):
		writeError(w, r, http.StatusConflict, "draft is not ready to confirm")
	case errors.Is(err, rider.ErrDraftChanged):
		writeError(w, r, http.StatusConflict, "draft changed while confirming, review and confirm again")
	case err != nil:
		h.logger().Error("create trip failed", "error", err)
		writeError(w, r, http.StatusBadGateway, "trip could not be created")
	default:
		writeJSON(w, r, http.StatusCreated, dto.TripCreatedResponse{TripID: id})
	}
}

func (h *RiderHandler) Back(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.BackResponse{Restored: h.Flow.Back(nil)})
}

func (h *RiderHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := h.Flow.Reset(); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "flow unavailable")
		return
	}
	h.writeDraft(w, r, http.StatusOK)
}

// VehicleState reports what the assigned vehicle is doing.
func (h *RiderHandler) VehicleState(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if h.Vehicle == nil {
		writeError(w, r, http.StatusNotFound, "no vehicle assigned")
		return
	}
	d, ok := h.Vehicle.Display()
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "vehicle state not synced yet")
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromDisplayState(d))
}
