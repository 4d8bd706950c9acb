package services

import (
	"context"
	"fmt"
	"log/slog"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/ports"

	"golang.org/x/sync/errgroup"
)

// RouteSynchronizer pushes the vehicle's position and the driving route through
// its remaining pickup/drop-off stops to the backend.
//
// Every failure is logged and swallowed: the next sync cycle re-sends the full
// state, so nothing here retries.
type RouteSynchronizer struct {
	vehicleID string
	routes    ports.RouteSource
	updater   ports.VehicleUpdater
	legCache  ports.LegCache
	logger    *slog.Logger
	metrics   *obs.Metrics
}

type RouteOption func(*RouteSynchronizer)

func WithLegCache(c ports.LegCache) RouteOption {
	return func(r *RouteSynchronizer) { r.legCache = c }
}

func WithRouteLogger(l *slog.Logger) RouteOption {
	return func(r *RouteSynchronizer) { r.logger = l }
}

func WithRouteMetrics(m *obs.Metrics) RouteOption {
	return func(r *RouteSynchronizer) { r.metrics = m }
}

func NewRouteSynchronizer(
	vehicleID string,
	routes ports.RouteSource,
	updater ports.VehicleUpdater,
	opts ...RouteOption,
) *RouteSynchronizer {
	r := &RouteSynchronizer{
		vehicleID: vehicleID,
		routes:    routes,
		updater:   updater,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sync reconciles plan and loc with the backend and returns the legs it pushed.
// The error is non-nil only when ctx was cancelled.
func (r *RouteSynchronizer) Sync(
	ctx context.Context,
	plan domain.VehiclePlan,
	loc domain.Location,
) (_ []domain.RouteLeg, err error) {
	defer obs.Time(ctx, r.logger, "route.Sync")(&err)

	routable := plan.Routable()
	if len(routable) == 0 {
		r.pushLocation(ctx, loc)
		r.count("location_only")
		return nil, ctx.Err()
	}

	points := make([]domain.Coordinates, 0, 1+len(routable))
	points = append(points, loc.Point)
	for _, w := range routable {
		points = append(points, w.Action.Destination)
	}

	// Location and route go out as two independent requests; either may fail.
	var (
		g    errgroup.Group
		legs []domain.RouteLeg
	)
	g.Go(func() error {
		r.pushLocation(ctx, loc)
		return nil
	})
	g.Go(func() error {
		legs = r.pushRoute(ctx, routable, points)
		return nil
	})
	_ = g.Wait()

	if legs == nil {
		return nil, ctx.Err()
	}

	if r.legCache != nil {
		if err := r.legCache.PutLegs(ctx, r.vehicleID, legs); err != nil {
			r.logger.Warn("route sync: leg cache write failed", "vehicle_id", r.vehicleID, "error", err)
		}
	}

	r.count("routed")
	return legs, ctx.Err()
}

// pushRoute fetches the legs through points and sends them upstream. It returns
// nil when the fetch failed; a failed push still returns the legs.
func (r *RouteSynchronizer) pushRoute(
	ctx context.Context,
	routable []domain.Waypoint,
	points []domain.Coordinates,
) []domain.RouteLeg {
	routes, err := r.routes.GetRouteForWaypoints(ctx, points)
	if err == nil && len(routes) != len(points)-1 {
		err = fmt.Errorf("expected %d legs, got %d", len(points)-1, len(routes))
	}
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("route sync: route fetch failed, route not pushed",
				"vehicle_id", r.vehicleID, "stops", len(routable), "error", err)
			r.count("failed")
		}
		return nil
	}

	legs := BuildRouteLegs(routable, routes)
	if err := r.updater.UpdateVehicleRoute(ctx, r.vehicleID, legs); err != nil {
		r.logger.Warn("route sync: route push failed",
			"vehicle_id", r.vehicleID, "legs", len(legs), "error", err)
		r.pushFailed("route")
	}
	return legs
}

// BuildRouteLegs maps route i onto routable waypoint i. The first leg starts at
// the vehicle; every later leg departs from the previous waypoint's last step.
func BuildRouteLegs(routable []domain.Waypoint, routes []domain.Route) []domain.RouteLeg {
	n := min(len(routable), len(routes))
	legs := make([]domain.RouteLeg, 0, n)
	for i := 0; i < n; i++ {
		leg := domain.RouteLeg{
			To:    routable[i].Identity(),
			Route: routes[i],
		}
		if i > 0 {
			from := routable[i-1].LastIdentity()
			leg.From = &from
		}
		legs = append(legs, leg)
	}
	return legs
}

func (r *RouteSynchronizer) pushLocation(ctx context.Context, loc domain.Location) {
	if err := r.updater.UpdateVehicleLocation(ctx, r.vehicleID, loc); err != nil {
		r.logger.Warn("route sync: location push failed", "vehicle_id", r.vehicleID, "error", err)
		r.pushFailed("location")
	}
}

func (r *RouteSynchronizer) count(outcome string) {
	if r.metrics != nil {
		r.metrics.RouteSyncs.WithLabelValues(outcome).Inc()
	}
}

func (r *RouteSynchronizer) pushFailed(sink string) {
	if r.metrics != nil {
		r.metrics.PushFailures.WithLabelValues(sink).Inc()
	}
}
