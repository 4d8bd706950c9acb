package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Port used by the rider app to book a trip.
type TripCreator interface {
	// Create a trip and return its id.
	CreateTrip(ctx context.Context, req domain.TripRequest) (string, error)
}
