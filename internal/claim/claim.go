// Package claim guards queued notifications against being dispatched by
// two overlapping runs.
package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "dispatch:claim:"

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisClaimer claims notifications with SET NX keys that expire after ttl.
type RedisClaimer struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisClaimer creates a claimer backed by the given Redis client.
func NewRedisClaimer(client redisClient, ttl time.Duration) *RedisClaimer {
	return &RedisClaimer{client: client, ttl: ttl}
}

func key(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

// Claim reserves notification id for the run. It returns false when
// another run already holds the claim.
func (c *RedisClaimer) Claim(ctx context.Context, id int64, runID uuid.UUID) (bool, error) {
	ok, err := c.client.SetNX(ctx, key(id), runID.String(), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim notification %d: %w", id, err)
	}

	return ok, nil
}

// Release drops the claim so a later run may pick the notification up again.
func (c *RedisClaimer) Release(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("release notification %d: %w", id, err)
	}

	return nil
}

// Noop grants every claim. It is used when Redis is not configured.
type Noop struct{}

// Claim always succeeds.
func (Noop) Claim(context.Context, int64, uuid.UUID) (bool, error) { return true, nil }

// Release does nothing.
func (Noop) Release(context.Context, int64) error { return nil }
