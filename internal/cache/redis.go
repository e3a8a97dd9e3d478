package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a go-redis client with JSON helpers, pattern deletion and
// health checks. A nil *Redis is valid for the package helpers that accept
// one and behaves like an always-empty cache.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0") and returns a client.
// Call Ping to verify the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// IsMiss reports whether err means the key was absent.
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Get fetches key and JSON-decodes its value.
// Returns redis.Nil (see IsMiss) when the key does not exist.
func Get[T any](ctx context.Context, r *Redis, key string) (T, error) {
	var zero T
	if r == nil {
		return zero, redis.Nil
	}
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return zero, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return v, nil
}

// Set JSON-encodes v and stores it under key. A zero ttl keeps the key until deleted.
func Set(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Del deletes one or more exact keys.
func Del(ctx context.Context, r *Redis, keys ...string) error {
	if r == nil || len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DelPattern deletes all keys matching a glob pattern (e.g. "playlist:*").
// Uses SCAN so it is safe for production, unlike KEYS.
func DelPattern(ctx context.Context, r *Redis, pattern string) error {
	if r == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache del pattern %s: %w", pattern, err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}
