package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepMultiplier = 5

type entry struct {
	count   int
	resetAt time.Time
}

// FixedWindow implements Limiter with a process-local map. State is neither
// durable nor shared across instances; deployments running more than one
// replica should use the Redis limiter instead.
type FixedWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
}

var _ Limiter = (*FixedWindow)(nil)

// FixedWindowOption configures a FixedWindow.
type FixedWindowOption func(*FixedWindow)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) FixedWindowOption {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFixedWindow creates a limiter allowing limit requests per window and
// starts a background sweep that drops long-expired entries.
func NewFixedWindow(limit int, window time.Duration, opts ...FixedWindowOption) *FixedWindow {
	f := &FixedWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	go f.sweepLoop()
	return f
}

// Check consumes a slot for key if one is available in the current window.
// It never fails; an unknown key simply starts a fresh window.
func (f *FixedWindow) Check(ctx context.Context, key string) (Result, error) {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[key]
	if !ok {
		e = &entry{resetAt: now.Add(f.window)}
		f.entries[key] = e
	}
	if now.After(e.resetAt) {
		e.count = 0
		e.resetAt = now.Add(f.window)
	}

	if e.count >= f.limit {
		return Result{
			Allowed:           false,
			Limit:             f.limit,
			Remaining:         0,
			RetryAfterSeconds: retryAfterSeconds(e.resetAt, now),
			ResetAt:           e.resetAt,
		}, nil
	}

	e.count++
	return Result{
		Allowed:   true,
		Limit:     f.limit,
		Remaining: f.limit - e.count,
		ResetAt:   e.resetAt,
	}, nil
}

// Stop terminates the background sweep.
func (f *FixedWindow) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

func (f *FixedWindow) sweepLoop() {
	interval := sweepMultiplier * f.window
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			f.sweep(f.now())
		case <-f.stop:
			return
		}
	}
}

// sweep drops entries whose window expired more than one sweep interval ago.
// Housekeeping only; correctness never depends on it.
func (f *FixedWindow) sweep(now time.Time) {
	cutoff := now.Add(-sweepMultiplier * f.window)
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, e := range f.entries {
		if e.resetAt.Before(cutoff) {
			delete(f.entries, key)
		}
	}
}
