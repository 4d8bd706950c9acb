package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/platform/obs"
	"vehicle-sync-service/internal/ports"
)

var _ ports.LegCache = (*SQLLegCache)(nil)

// SQLLegCache is a Postgres-backed cache of the legs last pushed for each
// vehicle. Every PutLegs replaces the vehicle's previous set.
type SQLLegCache struct {
	DB     *sql.DB
	Logger *slog.Logger
}

func NewSQLLegCache(db *sql.DB, logger *slog.Logger) *SQLLegCache {
	return &SQLLegCache{DB: db, Logger: logger}
}

func (s *SQLLegCache) PutLegs(ctx context.Context, vehicleID string, legs []domain.RouteLeg) (err error) {
	defer obs.Time(ctx, s.Logger, "leg.cache.PutLegs")(&err)

	if s.DB == nil {
		return errors.New("leg cache: db is nil")
	}
	if vehicleID == "" {
		return errors.New("insert leg cache: vehicle id must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert leg cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM route_leg_cache WHERE vehicle_id = $1;`, vehicleID); err != nil {
		return fmt.Errorf("insert leg cache: clear vehicle %q: %w", vehicleID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO route_leg_cache (
		vehicle_id, to_trip_id, to_step_id, from_trip_id, from_step_id,
		polyline, duration_ms, distance_meters
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (vehicle_id, to_trip_id, to_step_id) DO UPDATE
	SET from_trip_id = EXCLUDED.from_trip_id,
		from_step_id = EXCLUDED.from_step_id,
		polyline = EXCLUDED.polyline,
		duration_ms = EXCLUDED.duration_ms,
		distance_meters = EXCLUDED.distance_meters;
	`)
	if err != nil {
		return fmt.Errorf("insert leg cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range legs {
		poly, err := encodePolyline(l.Route.Polyline)
		if err != nil {
			return fmt.Errorf("insert leg cache to=%s: %w", l.To, err)
		}
		fromTrip, fromStep := fromColumns(l)

		if _, err := stmt.ExecContext(ctx,
			vehicleID, l.To.TripID, l.To.StepID, fromTrip, fromStep,
			poly, l.Route.Duration.Milliseconds(), l.Route.DistanceMeters,
		); err != nil {
			return fmt.Errorf("insert leg cache to=%s: %w", l.To, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert leg cache commit: %w", err)
	}

	return nil
}

func (s *SQLLegCache) GetLeg(
	ctx context.Context,
	vehicleID string,
	to domain.Identity,
) (_ domain.RouteLeg, _ bool, err error) {
	defer obs.Time(ctx, s.Logger, "leg.cache.GetLeg")(&err)

	if s.DB == nil {
		return domain.RouteLeg{}, false, errors.New("leg cache: db is nil")
	}

	q := `
	SELECT from_trip_id, from_step_id, polyline, duration_ms, distance_meters
	FROM route_leg_cache
	WHERE vehicle_id = $1
		AND to_trip_id = $2
		AND to_step_id = $3;
	`

	var r legRow
	err = s.DB.QueryRowContext(ctx, q, vehicleID, to.TripID, to.StepID).
		Scan(&r.fromTrip, &r.fromStep, &r.polyline, &r.durationMs, &r.distanceMeters)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RouteLeg{}, false, nil
	}
	if err != nil {
		return domain.RouteLeg{}, false, fmt.Errorf("get leg cache: query route_leg_cache table: %w", err)
	}

	leg, err := r.leg(to)
	if err != nil {
		return domain.RouteLeg{}, false, fmt.Errorf("get leg cache to=%s: %w", to, err)
	}
	return leg, true, nil
}
