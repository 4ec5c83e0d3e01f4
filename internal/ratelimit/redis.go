package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"leadsniper.app/internal/obs"
)

const redisKeyPrefix = "ratelimit:"

// Redis implements Limiter on a shared Redis instance so the window survives
// restarts and spans replicas. The counter is an atomic INCR with an expiry
// equal to the window; unlike FixedWindow the count keeps rising past the
// limit, which only affects the reported remaining, never admission.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

var _ Limiter = (*Redis)(nil)

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

// Check consumes a slot for key. Redis unavailability fails open: throttling
// is protection for the upstream model, not a correctness guarantee, so a
// degraded Redis must not take the endpoint down with it.
func (r *Redis) Check(ctx context.Context, key string) (Result, error) {
	full := redisKeyPrefix + key

	count, err := r.client.Incr(ctx, full).Result()
	if err != nil {
		r.failOpen(key, err)
		return Result{Allowed: true, Limit: r.limit, Remaining: r.limit - 1, ResetAt: time.Now().Add(r.window)}, nil
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, full, r.window).Err(); err != nil {
			r.failOpen(key, err)
		}
	}

	ttl, err := r.client.PTTL(ctx, full).Result()
	if err != nil || ttl < 0 {
		ttl = r.window
	}
	now := time.Now()
	resetAt := now.Add(ttl)

	if count > int64(r.limit) {
		return Result{
			Allowed:           false,
			Limit:             r.limit,
			Remaining:         0,
			RetryAfterSeconds: retryAfterSeconds(resetAt, now),
			ResetAt:           resetAt,
		}, nil
	}
	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: r.limit, Remaining: remaining, ResetAt: resetAt}, nil
}

func (r *Redis) failOpen(key string, err error) {
	obs.LogEvent(map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": "warn",
		"msg":   "rate limiter redis unavailable, failing open",
		"key":   key,
		"error": err.Error(),
	})
}
