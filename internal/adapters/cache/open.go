package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"vehicle-sync-service/internal/platform/db"
	"vehicle-sync-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

// Options selects and locates the cache backend.
type Options struct {
	// Driver is one of none, sqlite, postgres, redis.
	Driver      string
	SqlitePath  string
	DatabaseURL string
	RedisAddr   string
	TTL         time.Duration
	Logger      *slog.Logger
}

// Stores holds the caches built by Open. Either field may be nil: redis only
// backs legs, none backs nothing.
type Stores struct {
	Legs     ports.LegCache
	Geocodes ports.GeocodeCache
	closers  []func() error
}

func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, o Options) (*Stores, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Stores{}
	switch o.Driver {
	case "", "none":
		return s, nil

	case "sqlite":
		if o.SqlitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(o.SqlitePath), 0o755); err != nil {
				return nil, fmt.Errorf("open cache: create dir for %q: %w", o.SqlitePath, err)
			}
		}
		conn, err := db.OpenSqlite(ctx, o.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		if err := InitSchema(ctx, conn, DialectSqlite); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		s.Legs = NewSqliteLegCache(conn)
		if s.Geocodes, err = NewAddressCache(conn, DialectSqlite, logger); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		s.closers = append(s.closers, conn.Close)

	case "postgres":
		conn, err := db.OpenPostgres(ctx, o.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		if err := InitSchema(ctx, conn, DialectPostgres); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		s.Legs = NewSQLLegCache(conn, logger)
		if s.Geocodes, err = NewAddressCache(conn, DialectPostgres, logger); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		s.closers = append(s.closers, conn.Close)

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: o.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("open cache: ping redis %q: %w", o.RedisAddr, err)
		}
		s.Legs = NewRedisLegCache(client, o.TTL)
		s.closers = append(s.closers, client.Close)

	default:
		return nil, fmt.Errorf("open cache: unknown driver %q", o.Driver)
	}

	logger.Info("cache ready", "driver", o.Driver)
	return s, nil
}
