package ports

import (
	"context"
	"time"
	"vehicle-sync-service/internal/domain"
)

// Contract for the device locator.
type LocationSource interface {
	// Stream location fixes roughly every interval until ctx is done.
	// The channel is closed when the stream ends.
	ObserveCurrentLocation(ctx context.Context, interval time.Duration) <-chan domain.Location
	// Return the most recent fix, or an error if none is known yet.
	GetLastKnownLocation(ctx context.Context) (domain.Location, error)
}
