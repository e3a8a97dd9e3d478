package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Keys used by the library.
const (
	KeyFavorites       = "darteve_favorites"
	KeyCustomPlaylists = "darteve_custom_playlists"
)

// Store is a small key-value persistence surface. Values are JSON documents.
type Store interface {
	// Get returns the raw JSON stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying connections.
	Close() error
}

// GetJSON decodes the value under key into a T.
// A missing key yields the zero T and ErrNotFound.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T
	raw, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return v, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
