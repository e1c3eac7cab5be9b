package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// MemorySessionStore keeps sessions in process memory.  It serves as
// both the catalog and the seat ledger: each session carries its own
// mutex guarding the reserved counter, so reservations on different
// sessions never contend.
type MemorySessionStore struct {
	mu       sync.RWMutex // guards the map, not the entries
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session model.ClassSession
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*sessionEntry),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemorySessionStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, booking.ErrSessionNotFound
	}
	return e, nil
}

func (e *sessionEntry) snapshot() model.ClassSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Create stores a new session with reserved count zero.  An empty ID
// is replaced by a fresh UUID.
func (s *MemorySessionStore) Create(_ context.Context, cs model.ClassSession) (model.ClassSession, error) {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	now := s.now()
	cs.StartsAt = cs.StartsAt.UTC()
	cs.Reserved = 0
	cs.Status = model.SessionScheduled
	cs.CreatedAt, cs.UpdatedAt = now, now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[cs.ID]; ok {
		return model.ClassSession{}, ErrConflict
	}
	s.sessions[cs.ID] = &sessionEntry{session: cs}
	return cs, nil
}

// Get returns a copy of the session.
func (s *MemorySessionStore) Get(_ context.Context, id string) (model.ClassSession, error) {
	e, err := s.entry(id)
	if err != nil {
		return model.ClassSession{}, err
	}
	return e.snapshot(), nil
}

// List returns every session ordered by start time.
func (s *MemorySessionStore) List(_ context.Context) ([]model.ClassSession, error) {
	return s.collect(func(model.ClassSession) bool { return true }), nil
}

// ListUpcoming returns scheduled sessions that start now or later.
func (s *MemorySessionStore) ListUpcoming(_ context.Context) ([]model.ClassSession, error) {
	now := s.now()
	return s.collect(func(cs model.ClassSession) bool {
		return !cs.Cancelled() && !cs.StartsAt.Before(now)
	}), nil
}

func (s *MemorySessionStore) collect(keep func(model.ClassSession) bool) []model.ClassSession {
	s.mu.RLock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.ClassSession, 0, len(entries))
	for _, e := range entries {
		if cs := e.snapshot(); keep(cs) {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

// Update applies the editable fields.  Capacity is never changed.
func (s *MemorySessionStore) Update(_ context.Context, id string, u model.SessionUpdate) (model.ClassSession, error) {
	e, err := s.entry(id)
	if err != nil {
		return model.ClassSession{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	u.Apply(&e.session)
	e.session.UpdatedAt = s.now()
	return e.session, nil
}

// Cancel archives the session.  Reservations are handled by the caller.
func (s *MemorySessionStore) Cancel(_ context.Context, id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Status = model.SessionCancelled
	e.session.UpdatedAt = s.now()
	return nil
}

// TryReserve increments the reserved count iff a seat is left.
func (s *MemorySessionStore) TryReserve(_ context.Context, id string) (bool, error) {
	e, err := s.entry(id)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Reserved >= e.session.Capacity {
		return false, nil
	}
	e.session.Reserved++
	return true, nil
}

// Release decrements the reserved count, never below zero.
func (s *MemorySessionStore) Release(_ context.Context, id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Reserved > 0 {
		e.session.Reserved--
	}
	return nil
}

// AvailableSpots returns capacity minus reserved.
func (s *MemorySessionStore) AvailableSpots(_ context.Context, id string) (int, error) {
	e, err := s.entry(id)
	if err != nil {
		return 0, err
	}
	return e.snapshot().Available(), nil
}

// Sync overwrites the reserved count and returns the previous value.
func (s *MemorySessionStore) Sync(_ context.Context, cs model.ClassSession, reserved int) (int, error) {
	e, err := s.entry(cs.ID)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.session.Reserved
	e.session.Reserved = reserved
	return prev, nil
}
