package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resilienthubs/booking-engine/internal/pkg/metrics"
)

var ErrCacheMiss = errors.New("cache miss")

const versionKey = "availability:version"

// AvailabilityCache stores computed availability as JSON. Entries are keyed
// by the data version, so bumping the version orphans every entry and they
// age out by TTL.
type AvailabilityCache struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

func NewAvailabilityCache(client *redis.Client, m *metrics.Metrics) *AvailabilityCache {
	if m == nil {
		m = metrics.Nop()
	}
	return &AvailabilityCache{client: client, metrics: m}
}

// Version returns the current data version, 0 before the first bump.
func (c *AvailabilityCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read availability version: %w", err)
	}
	return v, nil
}

// BumpVersion invalidates every cached entry.
func (c *AvailabilityCache) BumpVersion(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("bump availability version: %w", err)
	}
	return nil
}

// Get decodes the entry at key into dest, or returns ErrCacheMiss.
func (c *AvailabilityCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.AvailabilityCacheRequests.WithLabelValues("miss").Inc()
			return ErrCacheMiss
		}
		c.metrics.AvailabilityCacheRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("read availability cache: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.metrics.AvailabilityCacheRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("decode availability cache: %w", err)
	}
	c.metrics.AvailabilityCacheRequests.WithLabelValues("hit").Inc()
	return nil
}

func (c *AvailabilityCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode availability cache: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("write availability cache: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) key(k string) string {
	return "availability:" + k
}
