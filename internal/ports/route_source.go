package ports

import (
	"context"
	"vehicle-sync-service/internal/domain"
)

// Contract for retrieving a driving route through an ordered list of points.
type RouteSource interface {
	// Return one route per consecutive pair, i.e. len(points)-1 routes.
	// Fails when no path can be found.
	GetRouteForWaypoints(ctx context.Context, points []domain.Coordinates) ([]domain.Route, error)
}
