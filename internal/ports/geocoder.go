package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Contract for resolving a free-form address typed by a rider.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}

// Persistent lookup in front of a Geocoder, keyed by country and folded
// address. Lookup reports ok=false on a miss.
type GeocodeCache interface {
	Lookup(ctx context.Context, key domain.GeocodeKey) (domain.Coordinates, bool, error)
	Store(ctx context.Context, key domain.GeocodeKey, at domain.Coordinates) error
}
