package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// RefreshLockKey names the lock guarding the refresh of one category.
func RefreshLockKey(categoryID string) string {
	return "darteve:lock:refresh:" + categoryID
}

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock attempts to acquire a distributed lock identified by key using
// SET NX EX. On success it returns an unlock function that must be called
// (typically via defer) to release the lock. If the lock is already held,
// ErrLocked is returned.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	// Only the holder of the token may release the lock.
	token := randomToken()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: the lock must be released even after the caller's context is done.
		_ = r.client.Eval(context.Background(), unlockScript, []string{key}, token).Err()
	}, nil
}

// IsLocked reports whether the lock key exists.
func IsLocked(ctx context.Context, r *Redis, key string) bool {
	n, _ := r.client.Exists(ctx, key).Result()
	return n > 0
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
