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

// MemoryReservationStore is the in-memory reservation registry.  The
// active index maps a (member, session) pair to its confirmed
// reservation, which makes the duplicate check a single lookup.
type MemoryReservationStore struct {
	mu       sync.RWMutex
	byID     map[string]*model.Reservation
	byMember map[string][]string // member id -> reservation ids, creation order
	active   map[string]string   // pairKey -> confirmed reservation id
	idem     map[string]string   // member id + key -> reservation id
	now      func() time.Time
}

// NewMemoryReservationStore returns an empty registry.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{
		byID:     make(map[string]*model.Reservation),
		byMember: make(map[string][]string),
		active:   make(map[string]string),
		idem:     make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func pairKey(memberID, sessionID string) string { return memberID + "\x00" + sessionID }

// HasActiveReservation reports whether the pair holds a confirmed seat.
func (s *MemoryReservationStore) HasActiveReservation(_ context.Context, memberID, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.active[pairKey(memberID, sessionID)]
	return ok, nil
}

// Create inserts a confirmed reservation.
func (s *MemoryReservationStore) Create(_ context.Context, memberID, sessionID, key string) (model.Reservation, error) {
	r := &model.Reservation{
		ID:             uuid.NewString(),
		MemberID:       memberID,
		SessionID:      sessionID,
		Status:         model.ReservationConfirmed,
		IdempotencyKey: key,
		CreatedAt:      s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[r.ID] = r
	s.byMember[memberID] = append(s.byMember[memberID], r.ID)
	s.active[pairKey(memberID, sessionID)] = r.ID
	if key != "" {
		s.idem[pairKey(memberID, key)] = r.ID
	}
	return *r, nil
}

// Get returns a copy of the reservation.
func (s *MemoryReservationStore) Get(_ context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, booking.ErrReservationNotFound
	}
	return *r, nil
}

// FindByIdempotencyKey returns the reservation created with key.
func (s *MemoryReservationStore) FindByIdempotencyKey(_ context.Context, memberID, key string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idem[pairKey(memberID, key)]
	if !ok {
		return model.Reservation{}, booking.ErrReservationNotFound
	}
	return *s.byID[id], nil
}

// Cancel flips a confirmed reservation owned by requestingMemberID.
func (s *MemoryReservationStore) Cancel(_ context.Context, id, requestingMemberID string) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	switch {
	case !ok:
		return model.Reservation{}, booking.ErrReservationNotFound
	case r.MemberID != requestingMemberID:
		return model.Reservation{}, booking.ErrForbidden
	case !r.Confirmed():
		return model.Reservation{}, booking.ErrAlreadyCancelled
	}
	at := s.now()
	r.Status = model.ReservationCancelled
	r.CancelledAt = &at
	delete(s.active, pairKey(r.MemberID, r.SessionID))
	return *r, nil
}

// ListForMember returns the member's reservations oldest first.
func (s *MemoryReservationStore) ListForMember(_ context.Context, memberID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byMember[memberID]
	out := make([]model.Reservation, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListConfirmedForSession returns the confirmed reservations of a session.
func (s *MemoryReservationStore) ListConfirmedForSession(_ context.Context, sessionID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, id := range s.active {
		if r := s.byID[id]; r.SessionID == sessionID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ConfirmedCounts counts confirmed reservations per session and member.
func (s *MemoryReservationStore) ConfirmedCounts(_ context.Context) (map[string]int, map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySession := make(map[string]int)
	byMember := make(map[string]int)
	for _, id := range s.active {
		r := s.byID[id]
		bySession[r.SessionID]++
		byMember[r.MemberID]++
	}
	return bySession, byMember, nil
}
