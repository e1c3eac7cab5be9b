package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MemoryPaymentStore keeps checkout records in memory.
type MemoryPaymentStore struct {
	mu       sync.Mutex
	payments map[string]model.Payment
	now      func() time.Time
}

func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{payments: make(map[string]model.Payment), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryPaymentStore) Create(_ context.Context, p model.Payment) (model.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = model.PaymentPending
	}
	p.CreatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; ok {
		return model.Payment{}, ErrConflict
	}
	s.payments[p.ID] = p
	return p, nil
}

func (s *MemoryPaymentStore) Get(_ context.Context, id string) (model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return model.Payment{}, ErrNotFound
	}
	return p, nil
}

// Complete marks a pending payment completed.  It returns false when
// the payment was already completed.
func (s *MemoryPaymentStore) Complete(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status == model.PaymentCompleted {
		return false, nil
	}
	at = at.UTC()
	p.Status = model.PaymentCompleted
	p.CompletedAt = &at
	s.payments[id] = p
	return true, nil
}

// Reopen returns a completed payment to pending.
func (s *MemoryPaymentStore) Reopen(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = model.PaymentPending
	p.CompletedAt = nil
	s.payments[id] = p
	return nil
}
