package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/cache"
)

const ttlValue = 5 * time.Minute

// CachedStore wraps a Store with a Redis read-through layer.
// Reads are served from Redis when possible; writes go to the inner store
// and then drop the cached copy.
type CachedStore struct {
	inner Store
	cache *cache.Redis
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis) *CachedStore {
	return &CachedStore{inner: inner, cache: c}
}

func cacheKey(key string) string { return "kv:" + key }

func (c *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	ck := cacheKey(key)
	if v, err := cache.Get[json.RawMessage](ctx, c.cache, ck); err == nil {
		return v, nil
	}
	value, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, ck, json.RawMessage(value), ttlValue); err != nil {
		log.Warn().Err(err).Str("key", ck).Msg("cache: set")
	}
	return value, nil
}

func (c *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := c.inner.Set(ctx, key, value); err != nil {
		return err
	}
	c.invalidate(ctx, cacheKey(key))
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, key string) error {
	if err := c.inner.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(ctx, cacheKey(key))
	return nil
}

// Close closes the inner store. The Redis client is owned by the caller.
func (c *CachedStore) Close() error {
	return c.inner.Close()
}

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && !cache.IsMiss(err) {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache: del")
	}
}
