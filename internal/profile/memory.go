package profile

import (
	"context"
	"strings"
	"sync"
	"time"

	"leadsniper.app/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
// Used in tests and for running without Postgres.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemory creates an empty profile store.
func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]*Profile)}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, p Profile) (Profile, error) {
	if p.Credits < 0 {
		return Profile{}, ErrInvalidCredits
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := p
	cp.Skills = append([]string(nil), p.Skills...)
	s.profiles[cp.ID] = &cp
	return p, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	out := *p
	out.Skills = append([]string(nil), p.Skills...)
	return out, nil
}

func (s *InMemory) ConditionalDecrement(ctx context.Context, id string, expected, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Credits != expected || p.Credits-delta < 0 {
		return 0, nil
	}
	p.Credits -= delta
	return 1, nil
}

func (s *InMemory) ResetFreeCredits(ctx context.Context, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidCredits
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched int64
	for _, p := range s.profiles {
		if p.Pro {
			continue
		}
		p.Credits = amount
		touched++
	}
	return touched, nil
}
