// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/meshintel/metasearch/pkg/types"
)

// redisCache shares the response cache across processes. Useful when
// several aggregator instances sit behind one load balancer and should not
// each hammer a struggling upstream.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisCache returns a Redis-backed cache. Errors degrade to cache
// misses; an unreachable Redis must never fail a search.
func NewRedisCache(addr, password string, db int, ttl time.Duration, log *zap.Logger) Cache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		ttl:    ttl,
		log:    log,
	}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	payload, err := c.client.Get(ctx, "metasearch:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("redis cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

func (c *redisCache) Set(ctx context.Context, key string, payload []byte) {
	if err := c.client.Set(ctx, "metasearch:"+key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("redis cache write failed", zap.Error(err))
	}
}

// NewCacheFromConfig picks the backend: Redis when an address is
// configured, the in-memory LRU otherwise.
func NewCacheFromConfig(cfg types.CacheConfig, log *zap.Logger) Cache {
	if cfg.RedisAddr != "" {
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.TTL, log)
	}
	return NewMemoryCache(cfg.Capacity, cfg.TTL)
}
