package lead

import (
	"context"
	"strings"
	"sync"
	"time"

	"leadsniper.app/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	order []string
	seq   uint64
}

// NewInMemory creates an empty lead store.
func NewInMemory() *InMemory {
	return &InMemory{leads: make(map[string]*Lead)}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Create(ctx context.Context, l Lead) (Lead, error) {
	if strings.TrimSpace(l.Title) == "" {
		return Lead{}, ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(l.ID) == "" {
		l.ID = ids.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	s.seq++
	l.Sequence = s.seq
	cp := l
	cp.Requirements = append([]string(nil), l.Requirements...)
	s.leads[cp.ID] = &cp
	s.order = append(s.order, cp.ID)
	return l, nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	out := *l
	out.Requirements = append([]string(nil), l.Requirements...)
	return out, nil
}

func (s *InMemory) List(ctx context.Context, limit int, afterSeq uint64) ([]Lead, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Lead
	var last uint64
	for _, id := range s.order {
		l := s.leads[id]
		if l.Sequence <= afterSeq {
			continue
		}
		res = append(res, *l)
		last = l.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

func (s *InMemory) SetPitchGenerated(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return ErrNotFound
	}
	l.PitchGenerated = true
	return nil
}
