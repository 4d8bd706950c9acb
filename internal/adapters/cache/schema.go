package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSqlite   Dialect = "sqlite"
)

// InitSchema creates the cache tables for the given dialect. It is idempotent.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch dialect {
	case DialectPostgres:
		statements = postgresSchema
	case DialectSqlite:
		statements = sqliteSchema
	default:
		return fmt.Errorf("init schema: unknown dialect %q", dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS route_leg_cache (
		vehicle_id TEXT NOT NULL,
		to_trip_id TEXT NOT NULL,
		to_step_id TEXT NOT NULL,
		from_trip_id TEXT,
		from_step_id TEXT,
		polyline TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		distance_meters INTEGER NOT NULL,
		PRIMARY KEY (vehicle_id, to_trip_id, to_step_id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		country TEXT NOT NULL,
		address_key TEXT NOT NULL,
		lon REAL NOT NULL,
		lat REAL NOT NULL,
		hits INTEGER NOT NULL DEFAULT 0,
		resolved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (country, address_key)
	);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS route_leg_cache (
		vehicle_id TEXT NOT NULL,
		to_trip_id TEXT NOT NULL,
		to_step_id TEXT NOT NULL,
		from_trip_id TEXT,
		from_step_id TEXT,
		polyline TEXT NOT NULL,
		duration_ms BIGINT NOT NULL,
		distance_meters INTEGER NOT NULL,
		PRIMARY KEY (vehicle_id, to_trip_id, to_step_id)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		country TEXT NOT NULL,
		address_key TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		hits BIGINT NOT NULL DEFAULT 0,
		resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (country, address_key)
	);
	`,
}
