package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Cache of the most recently synchronized route legs, keyed by the identity of
// the waypoint each leg arrives at.
type LegCache interface {
	PutLegs(ctx context.Context, vehicleID string, legs []domain.RouteLeg) error
	// Return the leg ending at the given waypoint; ok is false on a miss.
	GetLeg(ctx context.Context, vehicleID string, to domain.Identity) (leg domain.RouteLeg, ok bool, err error)
}
