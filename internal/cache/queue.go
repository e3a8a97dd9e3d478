package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RefreshJob asks a worker to re-resolve playlists.
// An empty CategoryIDs list means a full reload of the catalog.
type RefreshJob struct {
	CategoryIDs []string  `json:"category_ids,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// DefaultQueue is the Redis list key used for refresh jobs.
const DefaultQueue = "darteve:jobs:refresh"

// Enqueue pushes a job onto the left side of a Redis list.
func Enqueue(ctx context.Context, r *Redis, queue string, job RefreshJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks until a job is available on the right side of the list
// or the timeout expires. When the timeout elapses without a job, or ctx is
// done, (nil, nil) is returned so the caller can loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*RefreshJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if IsMiss(err) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job RefreshJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}
