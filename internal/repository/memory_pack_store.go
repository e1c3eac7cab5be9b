package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MemoryPackStore keeps credit packs in memory.
type MemoryPackStore struct {
	mu    sync.RWMutex
	packs map[string]model.CreditPack
	now   func() time.Time
}

func NewMemoryPackStore() *MemoryPackStore {
	return &MemoryPackStore{packs: make(map[string]model.CreditPack), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryPackStore) Create(_ context.Context, p model.CreditPack) (model.CreditPack, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[p.ID]; ok {
		return model.CreditPack{}, ErrConflict
	}
	s.packs[p.ID] = p
	return p, nil
}

func (s *MemoryPackStore) Get(_ context.Context, id string) (model.CreditPack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.packs[id]
	if !ok {
		return model.CreditPack{}, ErrNotFound
	}
	return p, nil
}

// List returns packs ordered by price, cheapest first.
func (s *MemoryPackStore) List(_ context.Context, activeOnly bool) ([]model.CreditPack, error) {
	s.mu.RLock()
	out := make([]model.CreditPack, 0, len(s.packs))
	for _, p := range s.packs {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriceCents == out[j].PriceCents {
			return out[i].Name < out[j].Name
		}
		return out[i].PriceCents < out[j].PriceCents
	})
	return out, nil
}

func (s *MemoryPackStore) Update(_ context.Context, id string, u model.PackUpdate) (model.CreditPack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return model.CreditPack{}, ErrNotFound
	}
	u.Apply(&p)
	p.UpdatedAt = s.now()
	s.packs[id] = p
	return p, nil
}

func (s *MemoryPackStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[id]; !ok {
		return ErrNotFound
	}
	delete(s.packs, id)
	return nil
}
