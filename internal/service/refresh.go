package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voyagen/darteve/internal/cache"
)

const (
	refreshLockTTL = 2 * time.Minute
	dequeueTimeout = 5 * time.Second
	// allKey names the lock taken by a full reload.
	allKey = "all"
)

// RequestRefresh queues a refresh for ids (all categories when empty). Without
// Redis the refresh runs inline. It reports whether the job was queued.
func (c *Catalog) RequestRefresh(ctx context.Context, ids []string) (bool, error) {
	if c.redis == nil {
		return false, c.Refresh(ctx, ids)
	}
	job := cache.RefreshJob{CategoryIDs: ids, RequestedAt: time.Now().UTC()}
	if err := cache.Enqueue(ctx, c.redis, cache.DefaultQueue, job); err != nil {
		return false, fmt.Errorf("enqueue refresh: %w", err)
	}
	return true, nil
}

// Refresh reloads the catalog when ids is empty, otherwise drops and
// re-resolves each listed category. With Redis, a category another instance
// is already refreshing is skipped.
func (c *Catalog) Refresh(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return c.locked(ctx, allKey, func() error { return c.Load(ctx) })
	}
	var errs []error
	for _, id := range ids {
		if _, err := c.Category(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		err := c.locked(ctx, id, func() error {
			c.playlist.Invalidate(ctx, id)
			_, err := c.playlist.Resolve(ctx, id)
			return err
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) locked(ctx context.Context, id string, fn func() error) error {
	if c.redis == nil {
		return fn()
	}
	unlock, err := cache.TryLock(ctx, c.redis, cache.RefreshLockKey(id), refreshLockTTL)
	if errors.Is(err, cache.ErrLocked) {
		c.logger.Debug().Str("category", id).Msg("refresh already running elsewhere")
		return nil
	}
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// RunWorker consumes refresh jobs until ctx is done. It returns immediately
// when Redis is not configured.
func (c *Catalog) RunWorker(ctx context.Context) {
	if c.redis == nil {
		return
	}
	c.logger.Info().Msg("refresh worker started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("refresh worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, c.redis, cache.DefaultQueue, dequeueTimeout)
		if err != nil {
			c.logger.Error().Err(err).Msg("refresh worker: dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		c.logger.Info().Strs("categories", job.CategoryIDs).Time("requested_at", job.RequestedAt).Msg("refresh job")
		if err := c.Refresh(ctx, job.CategoryIDs); err != nil {
			c.logger.Warn().Err(err).Msg("refresh job failed")
		}
	}
}
