package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hooplab/passport/internal/domain/model"
	"github.com/hooplab/passport/pkg/logger"
	"github.com/hooplab/passport/pkg/metrics"
)

const redisKeyPrefix = "passport:report:"

// RedisCache is the shared backend for multi-instance deployments. Backend
// errors are logged, counted, and treated as misses so a redis outage never
// blocks generation.
type RedisCache struct {
	client *redis.Client
	log    logger.Logger
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
	errs   atomic.Uint64
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisTTL sets the entry lifetime.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(log logger.Logger) RedisOption {
	return func(c *RedisCache) {
		c.log = log
	}
}

// NewRedisCache creates a redis-backed cache around an existing client.
func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("cache.redis")
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.errs.Add(1)
			metrics.RecordCacheError()
			c.log.Warn(ctx, "cache read failed, treating as miss",
				logger.String("fingerprint", fingerprint),
				logger.Error(fmt.Errorf("%w: %w", model.ErrCacheUnavailable, err)),
			)
		}
		c.misses.Add(1)
		metrics.RecordCacheMiss()
		return nil, false
	}
	c.hits.Add(1)
	metrics.RecordCacheHit()
	return val, true
}

func (c *RedisCache) Put(ctx context.Context, fingerprint string, content []byte) {
	if err := c.client.Set(ctx, redisKeyPrefix+fingerprint, content, c.ttl).Err(); err != nil {
		c.errs.Add(1)
		metrics.RecordCacheError()
		c.log.Warn(ctx, "cache write failed",
			logger.String("fingerprint", fingerprint),
			logger.Error(fmt.Errorf("%w: %w", model.ErrCacheUnavailable, err)),
		)
	}
}

func (c *RedisCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Errors: c.errs.Load()}
}
