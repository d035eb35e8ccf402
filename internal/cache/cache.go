// Package cache stores read-mostly snapshots in Redis.
//
// A Cache built on a nil client is disabled: every lookup misses and every
// write is a no-op, so callers never branch on whether Redis is configured.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/turfplot/internal/domain"
	"github.com/DukeRupert/turfplot/internal/metrics"
)

const (
	keyPrefix = "turfplot:"

	// PlotsKey holds the full plot snapshot used by hierarchy operations.
	PlotsKey = keyPrefix + "plots:snapshot"

	// DefaultTTL applies when a non-positive TTL is configured.
	DefaultTTL = 5 * time.Minute
)

// Cache is a JSON value cache over Redis.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Open parses a redis:// URL and returns a client. An empty URL returns a
// nil client, which New accepts as "disabled".
func Open(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// New creates a cache. rdb may be nil.
func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get decodes the value stored at key into dst. It returns false on a miss,
// when disabled, or when the stored value cannot be decoded.
func (c *Cache) Get(ctx context.Context, key string, dst any) bool {
	if !c.Enabled() {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMiss()
		} else {
			metrics.CacheError()
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		metrics.CacheError()
		c.logger.Warn("cache decode failed", "key", key, "error", err)
		return false
	}
	metrics.CacheHit()
	return true
}

// Set stores v at key with the cache TTL. Failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		metrics.CacheError()
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// Delete removes keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		metrics.CacheError()
		c.logger.Warn("cache delete failed", "keys", keys, "error", err)
	}
}

// =============================================================================
// Plot snapshot
// =============================================================================

// Plots returns the cached plot snapshot.
func (c *Cache) Plots(ctx context.Context) ([]domain.Plot, bool) {
	var plots []domain.Plot
	if !c.Get(ctx, PlotsKey, &plots) {
		return nil, false
	}
	return plots, true
}

// SetPlots stores the plot snapshot.
func (c *Cache) SetPlots(ctx context.Context, plots []domain.Plot) {
	c.Set(ctx, PlotsKey, plots)
}

// InvalidatePlots drops the plot snapshot so the next read rebuilds it.
func (c *Cache) InvalidatePlots(ctx context.Context) {
	c.Delete(ctx, PlotsKey)
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
