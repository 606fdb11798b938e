package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a DashboardCache shared across instances. Redis failures
// degrade to cache misses; the dashboard is always recomputable.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a RedisCache from a redis URL.
func NewRedisCache(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logger,
	}, nil
}

func cacheKey(tenantID string) string {
	return "hivemind:dashboard:" + tenantID
}

func (c *RedisCache) Get(ctx context.Context, tenantID string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("dashboard cache read failed", "tenant_id", tenantID, "error", err)
		return nil, false
	}
	return payload, true
}

func (c *RedisCache) Set(ctx context.Context, tenantID string, payload []byte) {
	if err := c.client.Set(ctx, cacheKey(tenantID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("dashboard cache write failed", "tenant_id", tenantID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, tenantID string) {
	if err := c.client.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		c.logger.Warn("dashboard cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}

// Close releases the underlying redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
