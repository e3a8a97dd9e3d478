package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/darteve/internal/metrics"
	"github.com/voyagen/darteve/internal/models"
	"golang.org/x/sync/singleflight"
)

// Resolver produces the channel list of a category.
type Resolver interface {
	ResolveCategory(ctx context.Context, categoryID string) ([]models.Channel, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, categoryID string) ([]models.Channel, error)

// ResolveCategory calls f.
func (f ResolverFunc) ResolveCategory(ctx context.Context, categoryID string) ([]models.Channel, error) {
	return f(ctx, categoryID)
}

// PlaylistKey is the Redis key of a cached category playlist.
func PlaylistKey(categoryID string) string {
	return "playlist:" + categoryID
}

// PlaylistCache maps category ids to resolved channel lists.
// Lookups go to the in-process map, then Redis when configured, then the
// Resolver. At most one resolution per category is in flight at a time;
// concurrent callers share its result. Failed resolutions are not stored.
type PlaylistCache struct {
	resolver Resolver
	redis    *Redis
	ttl      time.Duration

	mu      sync.RWMutex
	entries map[string][]models.Channel
	gen     map[string]uint64
	group   singleflight.Group
}

// NewPlaylistCache creates a cache backed by resolver. r may be nil.
// ttl applies to the Redis copy only; local entries live until invalidated.
func NewPlaylistCache(resolver Resolver, r *Redis, ttl time.Duration) *PlaylistCache {
	return &PlaylistCache{
		resolver: resolver,
		redis:    r,
		ttl:      ttl,
		entries:  make(map[string][]models.Channel),
		gen:      make(map[string]uint64),
	}
}

// Get returns the locally cached list for id without resolving.
func (c *PlaylistCache) Get(id string) ([]models.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chs, ok := c.entries[id]
	return chs, ok
}

// Resolve returns the channels of category id, resolving them on a miss.
func (c *PlaylistCache) Resolve(ctx context.Context, id string) ([]models.Channel, error) {
	if chs, ok := c.Get(id); ok {
		metrics.RecordCacheLookup("local", true)
		return chs, nil
	}
	metrics.RecordCacheLookup("local", false)

	c.mu.RLock()
	gen := c.gen[id]
	c.mu.RUnlock()

	ch := c.group.DoChan(id, func() (any, error) {
		// The shared resolution outlives any single caller.
		rctx := context.WithoutCancel(ctx)
		return c.load(rctx, id, gen)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Channel), nil
	}
}

func (c *PlaylistCache) load(ctx context.Context, id string, gen uint64) ([]models.Channel, error) {
	// A flight that finished between the caller's miss and this one
	// already stored the list.
	if chs, ok := c.stored(id, gen); ok {
		return chs, nil
	}
	if c.redis != nil {
		chs, err := Get[[]models.Channel](ctx, c.redis, PlaylistKey(id))
		switch {
		case err == nil:
			metrics.RecordCacheLookup("redis", true)
			c.store(id, chs, gen)
			return chs, nil
		case IsMiss(err):
			metrics.RecordCacheLookup("redis", false)
		default:
			log.Warn().Err(err).Str("category", id).Msg("playlist cache: redis get")
		}
	}

	chs, err := c.resolver.ResolveCategory(ctx, id)
	if err != nil {
		metrics.PlaylistResolutions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}
	metrics.PlaylistResolutions.WithLabelValues("ok").Inc()
	if c.store(id, chs, gen) {
		if err := Set(ctx, c.redis, PlaylistKey(id), chs, c.ttl); err != nil {
			log.Warn().Err(err).Str("category", id).Msg("playlist cache: redis set")
		}
	}
	return chs, nil
}

// stored returns the local entry for id if id was not invalidated since gen.
func (c *PlaylistCache) stored(id string, gen uint64) ([]models.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen[id] != gen {
		return nil, false
	}
	chs, ok := c.entries[id]
	return chs, ok
}

// store saves chs unless id was invalidated since the resolution started.
func (c *PlaylistCache) store(id string, chs []models.Channel, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[id] != gen {
		return false
	}
	c.entries[id] = chs
	return true
}

// Put seeds or replaces the entry for id.
func (c *PlaylistCache) Put(ctx context.Context, id string, chs []models.Channel) {
	c.mu.Lock()
	c.entries[id] = chs
	c.mu.Unlock()
	if err := Set(ctx, c.redis, PlaylistKey(id), chs, c.ttl); err != nil {
		log.Warn().Err(err).Str("category", id).Msg("playlist cache: redis set")
	}
}

// Invalidate removes the entry for id from every tier. A resolution already
// in flight for id completes for its callers but is not stored.
func (c *PlaylistCache) Invalidate(ctx context.Context, id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.gen[id]++
	c.mu.Unlock()
	c.group.Forget(id)
	if err := Del(ctx, c.redis, PlaylistKey(id)); err != nil {
		log.Warn().Err(err).Str("category", id).Msg("playlist cache: redis del")
	}
}

// Clear drops all entries, including every Redis playlist key.
func (c *PlaylistCache) Clear(ctx context.Context) {
	c.mu.Lock()
	for id := range c.entries {
		c.gen[id]++
	}
	c.entries = make(map[string][]models.Channel)
	c.mu.Unlock()
	if err := DelPattern(ctx, c.redis, PlaylistKey("*")); err != nil {
		log.Warn().Err(err).Msg("playlist cache: redis clear")
	}
}
