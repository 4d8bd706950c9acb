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

var _ ports.GeocodeCache = (*AddressCache)(nil)

// addressQueries differ only in placeholder style.
type addressQueries struct {
	lookup string
	store  string
}

var addressSQL = map[Dialect]addressQueries{
	DialectSqlite: {
		lookup: `
		UPDATE geocode_cache SET hits = hits + 1
		WHERE country = ? AND address_key = ?
		RETURNING lon, lat;`,
		store: `
		INSERT INTO geocode_cache (country, address_key, lon, lat)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (country, address_key) DO UPDATE
		SET lon = excluded.lon, lat = excluded.lat, resolved_at = CURRENT_TIMESTAMP;`,
	},
	DialectPostgres: {
		lookup: `
		UPDATE geocode_cache SET hits = hits + 1
		WHERE country = $1 AND address_key = $2
		RETURNING lon, lat;`,
		store: `
		INSERT INTO geocode_cache (country, address_key, lon, lat)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (country, address_key) DO UPDATE
		SET lon = EXCLUDED.lon, lat = EXCLUDED.lat, resolved_at = now();`,
	},
}

// AddressCache remembers where rider-typed addresses resolved to. Each lookup
// that hits bumps a counter so popular pickup spots can be told apart from
// one-off entries.
type AddressCache struct {
	db      *sql.DB
	queries addressQueries
	logger  *slog.Logger
}

func NewAddressCache(db *sql.DB, dialect Dialect, logger *slog.Logger) (*AddressCache, error) {
	if db == nil {
		return nil, errors.New("address cache: db is nil")
	}
	q, ok := addressSQL[dialect]
	if !ok {
		return nil, fmt.Errorf("address cache: unknown dialect %q", dialect)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AddressCache{db: db, queries: q, logger: logger}, nil
}

func (c *AddressCache) Lookup(ctx context.Context, key domain.GeocodeKey) (_ domain.Coordinates, _ bool, err error) {
	defer obs.Time(ctx, c.logger, "address.cache.Lookup")(&err)

	if key.Empty() {
		return domain.Coordinates{}, false, nil
	}

	var at domain.Coordinates
	err = c.db.QueryRowContext(ctx, c.queries.lookup, key.Country, key.Address).Scan(&at.Lon, &at.Lat)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("lookup address %s: %w", key, err)
	}
	return at, true, nil
}

func (c *AddressCache) Store(ctx context.Context, key domain.GeocodeKey, at domain.Coordinates) (err error) {
	defer obs.Time(ctx, c.logger, "address.cache.Store")(&err)

	if key.Empty() {
		return errors.New("store address: empty address")
	}
	if _, err := c.db.ExecContext(ctx, c.queries.store, key.Country, key.Address, at.Lon, at.Lat); err != nil {
		return fmt.Errorf("store address %s: %w", key, err)
	}
	return nil
}
