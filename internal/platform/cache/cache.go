package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/ridloal/inventory-pos/internal/platform/logger"
	"go.uber.org/zap"
)

// Cache stores JSON values under keys that are scoped by a version number.
// Invalidate bumps the version, which orphans every previously written key
// until its TTL expires.
//
// Get reports the version it resolved. A caller that fills the cache after a
// miss hands that version back to Set, so data read before an Invalidate is
// written under the old version and never served.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (Version, bool)
	Set(ctx context.Context, version Version, key string, value interface{})
	Invalidate(ctx context.Context)
}

// Version identifies one generation of cached values.
type Version int64

// NoVersion is returned by Get when the version could not be resolved. Set
// ignores writes carrying it.
const NoVersion Version = -1

type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	lookups *prometheus.CounterVec
}

// NewRedisCache returns a versioned cache. lookups may be nil.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, lookups *prometheus.CounterVec) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, lookups: lookups}
}

func (c *RedisCache) versionKey() string {
	return c.prefix + ":version"
}

func (c *RedisCache) version(ctx context.Context) (Version, error) {
	v, err := c.client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return NoVersion, err
	}
	return Version(v), nil
}

func (c *RedisCache) key(version Version, key string) string {
	return fmt.Sprintf("%s:v%d:%s", c.prefix, version, key)
}

func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) (Version, bool) {
	version, err := c.version(ctx)
	if err != nil {
		logger.Warn("cache: failed to read version", zap.Error(err))
		c.observe("error")
		return NoVersion, false
	}
	raw, err := c.client.Get(ctx, c.key(version, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("cache: get failed", zap.String("key", key), zap.Error(err))
		}
		c.observe("miss")
		return version, false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("cache: failed to unmarshal cached value", zap.String("key", key), zap.Error(err))
		c.observe("error")
		return version, false
	}
	c.observe("hit")
	return version, true
}

// Set writes value under the given version. A version older than the current
// one produces an orphaned key that Get never reads.
func (c *RedisCache) Set(ctx context.Context, version Version, key string, value interface{}) {
	if version == NoVersion {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache: failed to marshal value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(version, key), raw, c.ttl).Err(); err != nil {
		logger.Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.versionKey()).Err(); err != nil {
		logger.Warn("cache: failed to bump version", zap.Error(err))
	}
}

func (c *RedisCache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

// Noop is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (Version, bool) { return NoVersion, false }
func (Noop) Set(context.Context, Version, string, interface{})        {}
func (Noop) Invalidate(context.Context)                               {}
