package api

import (
	"log/slog"
	"net/http"
	"vehicle-sync-service/internal/api/handlers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DriverDeps lists what the driver API needs. Gatherer may be nil.
type DriverDeps struct {
	Handler  *handlers.DriverHandler
	Synced   func() bool
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewDriverRouter wires the driver app's local API and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewDriverRouter(d DriverDeps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Synced: d.Synced}
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/state", d.Handler.State)
	mux.HandleFunc("/trip-details", d.Handler.TripDetails)
	mux.HandleFunc("/back", d.Handler.Back)
	mux.HandleFunc("/waypoints/complete", d.Handler.CompleteWaypoint)
	mountMetrics(mux, d.Gatherer)

	return requestMiddleware(d.Logger, mux)
}

type RiderDeps struct {
	Handler  *handlers.RiderHandler
	Synced   func() bool
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewRiderRouter(d RiderDeps) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{Synced: d.Synced}
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/trip", d.Handler.Draft)
	mux.HandleFunc("/trip/pickup", d.Handler.Pickup)
	mux.HandleFunc("/trip/drop-off", d.Handler.DropOff)
	mux.HandleFunc("/trip/vehicle", d.Handler.SelectVehicle)
	mux.HandleFunc("/trip/confirm", d.Handler.Confirm)
	mux.HandleFunc("/trip/back", d.Handler.Back)
	mux.HandleFunc("/trip/reset", d.Handler.Reset)
	mux.HandleFunc("/vehicle", d.Handler.VehicleState)
	mountMetrics(mux, d.Gatherer)

	return requestMiddleware(d.Logger, mux)
}

func mountMetrics(mux *http.ServeMux, g prometheus.Gatherer) {
	if g == nil {
		return
	}
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
