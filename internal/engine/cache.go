// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache stores marshaled response payloads keyed by the full normalized
// request. Payloads are opaque bytes so a cache hit replays the exact
// response. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// memoryCache is the default backend: an in-process expirable LRU.
type memoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache returns a TTL- and capacity-bounded in-memory cache.
func NewMemoryCache(capacity int, ttl time.Duration) Cache {
	if capacity <= 0 {
		capacity = 500
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &memoryCache{lru: expirable.NewLRU[string, []byte](capacity, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *memoryCache) Set(_ context.Context, key string, payload []byte) {
	c.lru.Add(key, payload)
}

// cacheKey hashes the request fields into a fixed-size key. Callers join
// the fields with a separator that cannot appear inside them unescaped.
func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
