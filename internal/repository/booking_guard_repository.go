package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const bookingGuardPrefix = "booking:inflight:"

// releaseGuardScript deletes the key only while it still holds the caller's token.
var releaseGuardScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// BookingGuardRepository keeps per-task in-flight markers in Redis.
type BookingGuardRepository struct {
	client *redis.Client
}

// NewBookingGuardRepository constructs the guard store.
func NewBookingGuardRepository(client *redis.Client) *BookingGuardRepository {
	return &BookingGuardRepository{client: client}
}

// Acquire sets the marker for the task when absent. It reports false when
// another request already holds it.
func (r *BookingGuardRepository) Acquire(ctx context.Context, taskID, token string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, bookingGuardPrefix+taskID, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx booking guard %s: %w", taskID, err)
	}
	return ok, nil
}

// Release drops the marker if it still belongs to token.
func (r *BookingGuardRepository) Release(ctx context.Context, taskID, token string) error {
	if err := releaseGuardScript.Run(ctx, r.client, []string{bookingGuardPrefix + taskID}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis release booking guard %s: %w", taskID, err)
	}
	return nil
}
