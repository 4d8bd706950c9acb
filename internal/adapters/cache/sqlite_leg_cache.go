package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"
)

var _ ports.LegCache = (*SqliteLegCache)(nil)

// SQLite backed cache of the legs last pushed for each vehicle.
// Used by the on-device build where no Postgres is available.
type SqliteLegCache struct {
	DB *sql.DB
}

func NewSqliteLegCache(db *sql.DB) *SqliteLegCache {
	return &SqliteLegCache{DB: db}
}

func (s *SqliteLegCache) PutLegs(ctx context.Context, vehicleID string, legs []domain.RouteLeg) error {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM route_leg_cache WHERE vehicle_id = ?;`, vehicleID); err != nil {
		return fmt.Errorf("insert leg cache: clear vehicle %q: %w", vehicleID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO route_leg_cache (
		vehicle_id,
		to_trip_id,
		to_step_id,
		from_trip_id,
		from_step_id,
		polyline,
		duration_ms,
		distance_meters
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
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

func (s *SqliteLegCache) GetLeg(ctx context.Context, vehicleID string, to domain.Identity) (domain.RouteLeg, bool, error) {
	if s.DB == nil {
		return domain.RouteLeg{}, false, errors.New("leg cache: db is nil")
	}

	q := `
	SELECT
		from_trip_id,
		from_step_id,
		polyline,
		duration_ms,
		distance_meters
	FROM route_leg_cache
	WHERE vehicle_id = ? AND to_trip_id = ? AND to_step_id = ?;
	`

	var r legRow
	err := s.DB.QueryRowContext(ctx, q, vehicleID, to.TripID, to.StepID).
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
