package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Push sinks reporting vehicle progress to the backend.
// Every call is independent; there is no transaction across them.
type VehicleUpdater interface {
	UpdateVehicleLocation(ctx context.Context, vehicleID string, loc domain.Location) error
	UpdateVehicleRoute(ctx context.Context, vehicleID string, legs []domain.RouteLeg) error
	// Mark the given steps of a trip as done.
	FinishSteps(ctx context.Context, vehicleID string, tripID string, stepIDs []string) error
}
