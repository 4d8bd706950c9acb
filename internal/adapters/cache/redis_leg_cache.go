package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"vehicle-sync-service/internal/domain"
	"vehicle-sync-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

var _ ports.LegCache = (*RedisLegCache)(nil)

const defaultLegTTL = 10 * time.Minute

// RedisLegCache keeps each vehicle's legs in one hash keyed by destination
// identity. The hash expires so a vehicle that stops syncing leaves no stale
// route behind.
type RedisLegCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLegCache(client *redis.Client, ttl time.Duration) *RedisLegCache {
	if ttl <= 0 {
		ttl = defaultLegTTL
	}
	return &RedisLegCache{client: client, prefix: "vehicle-sync:legs:", ttl: ttl}
}

type redisLeg struct {
	From           *domain.Identity `json:"from,omitempty"`
	Polyline       string           `json:"polyline"`
	DurationMs     int64            `json:"duration_ms"`
	DistanceMeters int              `json:"distance_meters"`
}

func (c *RedisLegCache) key(vehicleID string) string { return c.prefix + vehicleID }

func (c *RedisLegCache) PutLegs(ctx context.Context, vehicleID string, legs []domain.RouteLeg) error {
	if vehicleID == "" {
		return errors.New("insert leg cache: vehicle id must not be empty")
	}

	fields := make(map[string]any, len(legs))
	for _, l := range legs {
		poly, err := encodePolyline(l.Route.Polyline)
		if err != nil {
			return fmt.Errorf("insert leg cache to=%s: %w", l.To, err)
		}
		b, err := json.Marshal(redisLeg{
			From:           l.From,
			Polyline:       poly,
			DurationMs:     l.Route.Duration.Milliseconds(),
			DistanceMeters: l.Route.DistanceMeters,
		})
		if err != nil {
			return fmt.Errorf("insert leg cache to=%s: %w", l.To, err)
		}
		fields[l.To.String()] = b
	}

	key := c.key(vehicleID)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(fields) > 0 {
			p.HSet(ctx, key, fields)
			p.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert leg cache vehicle=%q: %w", vehicleID, err)
	}
	return nil
}

func (c *RedisLegCache) GetLeg(ctx context.Context, vehicleID string, to domain.Identity) (domain.RouteLeg, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(vehicleID), to.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RouteLeg{}, false, nil
	}
	if err != nil {
		return domain.RouteLeg{}, false, fmt.Errorf("get leg cache to=%s: %w", to, err)
	}

	var rl redisLeg
	if err := json.Unmarshal(raw, &rl); err != nil {
		return domain.RouteLeg{}, false, fmt.Errorf("get leg cache to=%s: decode: %w", to, err)
	}
	poly, err := decodePolyline(rl.Polyline)
	if err != nil {
		return domain.RouteLeg{}, false, fmt.Errorf("get leg cache to=%s: %w", to, err)
	}

	return domain.RouteLeg{
		From: rl.From,
		To:   to,
		Route: domain.Route{
			Polyline:       poly,
			Duration:       time.Duration(rl.DurationMs) * time.Millisecond,
			DistanceMeters: rl.DistanceMeters,
		},
	}, true, nil
}
