// Package ratelimit bounds how often a single user may hit the pitch
// generation endpoint: a fixed window of W seconds allowing N requests,
// tracked per profile id.
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a single Check call.
type Result struct {
	Allowed           bool
	Limit             int
	Remaining         int
	RetryAfterSeconds int
	ResetAt           time.Time
}

// Limiter is the per-user request throttle consulted by the pitch handler.
// Checking is coupled to consuming: an allowed Check takes a slot whether or
// not the request later succeeds.
type Limiter interface {
	Check(ctx context.Context, key string) (Result, error)
}

func retryAfterSeconds(resetAt, now time.Time) int {
	d := resetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
