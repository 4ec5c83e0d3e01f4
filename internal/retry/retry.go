// Package retry wraps a single external call with bounded exponential
// backoff. It is stateless: every invocation starts fresh, there is no
// jitter and no circuit breaking.
package retry

import (
	"context"
	"time"
)

// Retryable marks errors worth another attempt. The upstream model client
// implements it for HTTP 429 and 5xx class failures.
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err asks for a retry.
func IsRetryable(err error) bool {
	r, ok := err.(Retryable)
	return ok && r.Retryable()
}

// Retrier executes calls with exponential backoff between retryable failures.
type Retrier struct {
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithSleep overrides the delay function (tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// New creates a Retrier performing at most maxAttempts calls.
func New(maxAttempts int, opts ...Option) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	r := &Retrier{
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs call until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The delay before attempt k+1 is 2^k seconds
// (2s, 4s, 8s, ...). The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, call func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts || !IsRetryable(lastErr) {
			return lastErr
		}
		delay := time.Duration(1<<attempt) * time.Second
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
