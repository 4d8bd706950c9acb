package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSqlite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, InitSchema(context.Background(), db, DialectSqlite))
	return db
}

func sampleLegs() []domain.RouteLeg {
	first := domain.Identity{TripID: "t1", StepID: "s1"}
	return []domain.RouteLeg{
		{
			To: domain.Identity{TripID: "t1", StepID: "s0"},
			Route: domain.Route{
				Polyline:       []domain.Coordinates{{Lon: 1, Lat: 2}, {Lon: 1.5, Lat: 2.5}},
				Duration:       95 * time.Second,
				DistanceMeters: 1300,
			},
		},
		{
			From:  &first,
			To:    domain.Identity{TripID: "t2", StepID: "s2"},
			Route: domain.Route{Polyline: []domain.Coordinates{{Lon: 3, Lat: 4}}, Duration: time.Minute, DistanceMeters: 900},
		},
	}
}

func exerciseLegCache(t *testing.T, c ports.LegCache) {
	ctx := context.Background()
	legs := sampleLegs()

	require.NoError(t, c.PutLegs(ctx, "v1", legs))

	got, ok, err := c.GetLeg(ctx, "v1", legs[0].To)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, legs[0], got)

	got, ok, err = c.GetLeg(ctx, "v1", legs[1].To)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, legs[1], got)

	_, ok, err = c.GetLeg(ctx, "v2", legs[0].To)
	require.NoError(t, err)
	assert.False(t, ok)

	// A new push replaces the previous set.
	require.NoError(t, c.PutLegs(ctx, "v1", legs[1:]))
	_, ok, err = c.GetLeg(ctx, "v1", legs[0].To)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.PutLegs(ctx, "v1", nil))
	_, ok, err = c.GetLeg(ctx, "v1", legs[1].To)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, c.PutLegs(ctx, "", legs))
}

func TestSqliteLegCache(t *testing.T) {
	exerciseLegCache(t, NewSqliteLegCache(openSqlite(t)))
}

func TestRedisLegCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisLegCache(client, time.Minute)
	exerciseLegCache(t, c)

	require.NoError(t, c.PutLegs(context.Background(), "v9", sampleLegs()))
	assert.Equal(t, time.Minute, mr.TTL("vehicle-sync:legs:v9"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.GetLeg(context.Background(), "v9", sampleLegs()[0].To)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddressCacheScopesByCountry(t *testing.T) {
	ctx := context.Background()
	db := openSqlite(t)
	c, err := NewAddressCache(db, DialectSqlite, nil)
	require.NoError(t, err)

	us := domain.NewGeocodeKey("US", "1 Main St")
	ca := domain.NewGeocodeKey("CA", "1 Main St")

	_, ok, err := c.Lookup(ctx, us)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, us, domain.Coordinates{Lon: -122.4, Lat: 37.7}))

	got, ok, err := c.Lookup(ctx, domain.NewGeocodeKey("us", "  1 MAIN st "))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lon: -122.4, Lat: 37.7}, got)

	_, ok, err = c.Lookup(ctx, ca)
	require.NoError(t, err)
	assert.False(t, ok, "same text in another country is a different place")

	// Re-resolving replaces the point and keeps the hit count.
	require.NoError(t, c.Store(ctx, us, domain.Coordinates{Lon: -122.5, Lat: 37.6}))
	got, ok, err = c.Lookup(ctx, us)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Coordinates{Lon: -122.5, Lat: 37.6}, got)

	var hits int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT hits FROM geocode_cache WHERE country = ? AND address_key = ?`,
		us.Country, us.Address).Scan(&hits))
	assert.Equal(t, 2, hits)

	_, ok, err = c.Lookup(ctx, domain.NewGeocodeKey("US", " "))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Store(ctx, domain.NewGeocodeKey("US", " "), domain.Coordinates{}))
}

func TestNewAddressCacheRejectsBadInput(t *testing.T) {
	_, err := NewAddressCache(nil, DialectSqlite, nil)
	assert.Error(t, err)
	_, err = NewAddressCache(openSqlite(t), Dialect("oracle"), nil)
	assert.Error(t, err)
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db := openSqlite(t)
	require.NoError(t, InitSchema(context.Background(), db, DialectSqlite))
	assert.Error(t, InitSchema(context.Background(), db, Dialect("oracle")))
	assert.Error(t, InitSchema(context.Background(), nil, DialectSqlite))
}
