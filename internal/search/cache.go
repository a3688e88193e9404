package search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/logging"
)

const cacheKeyPrefix = "leads:search:"

// Cache stores serialized search results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get returns the cached bytes; a miss is reported as ok=false with no error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set stores value for ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Cached serves repeated queries from a cache. Cache failures fall through to
// the live aggregator.
type Cached struct {
	next   Aggregator
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps next with cache.
func NewCached(next Aggregator, cache Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, logger: logging.OrNop(logger).Named("search.cache")}
}

// Query implements Aggregator.
func (c *Cached) Query(ctx context.Context, q string) ([]Result, error) {
	key := cacheKey(q)
	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", zap.Error(err))
	} else if ok {
		var cached []Result
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := c.next.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(results)
	if err == nil {
		err = c.cache.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
	return results, nil
}

func cacheKey(q string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(q))))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

var _ Aggregator = (*Cached)(nil)
