package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// MemoryMemberStore keeps members and their credit journal in memory.
// Balance changes lock only the member they touch; the journal has its
// own mutex and is always taken after a member lock.
type MemoryMemberStore struct {
	mu      sync.RWMutex
	members map[string]*memberEntry
	emails  map[string]string // normalized email -> member id

	journalMu sync.Mutex
	journal   []model.CreditTransaction

	now func() time.Time
}

type memberEntry struct {
	mu     sync.Mutex
	member model.Member
}

// NewMemoryMemberStore returns an empty store.
func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{
		members: make(map[string]*memberEntry),
		emails:  make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *MemoryMemberStore) entry(id string) (*memberEntry, error) {
	s.mu.RLock()
	e, ok := s.members[id]
	s.mu.RUnlock()
	if !ok {
		return nil, booking.ErrMemberNotFound
	}
	return e, nil
}

// Create registers a member.  Credits given at creation are journaled
// as a grant so the journal explains the whole balance.
func (s *MemoryMemberStore) Create(_ context.Context, m model.Member) (model.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Credits < 0 {
		return model.Member{}, booking.ErrInvalidAmount
	}
	m.Email = normEmail(m.Email)
	if m.Role == "" {
		m.Role = model.RoleMember
	}
	if m.Status == "" {
		m.Status = model.MemberActive
	}
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now

	s.mu.Lock()
	if _, ok := s.emails[m.Email]; ok {
		s.mu.Unlock()
		return model.Member{}, ErrEmailExists
	}
	s.members[m.ID] = &memberEntry{member: m}
	s.emails[m.Email] = m.ID
	s.mu.Unlock()

	if m.Credits > 0 {
		s.appendJournal(model.CreditEntry{MemberID: m.ID, Amount: m.Credits, Kind: model.CreditGrant}, m.Credits)
	}
	return m, nil
}

// GetByID returns a copy of the member.
func (s *MemoryMemberStore) GetByID(_ context.Context, id string) (model.Member, error) {
	e, err := s.entry(id)
	if err != nil {
		return model.Member{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.member, nil
}

// GetByEmail looks a member up by normalized email.
func (s *MemoryMemberStore) GetByEmail(ctx context.Context, email string) (model.Member, error) {
	s.mu.RLock()
	id, ok := s.emails[normEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return model.Member{}, booking.ErrMemberNotFound
	}
	return s.GetByID(ctx, id)
}

// List returns all members ordered by creation time.
func (s *MemoryMemberStore) List(_ context.Context) ([]model.Member, error) {
	s.mu.RLock()
	entries := make([]*memberEntry, 0, len(s.members))
	for _, e := range s.members {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Member, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.member)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateProfile applies profile changes.  Changing the email keeps the
// email index unique.
func (s *MemoryMemberStore) UpdateProfile(_ context.Context, id string, p model.MemberProfile) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.members[id]
	if !ok {
		return model.Member{}, booking.ErrMemberNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	oldEmail := e.member.Email
	if p.Email != nil {
		next := normEmail(*p.Email)
		if owner, taken := s.emails[next]; taken && owner != id {
			return model.Member{}, ErrEmailExists
		}
		p.Email = &next
	}
	p.Apply(&e.member)
	if e.member.Email != oldEmail {
		delete(s.emails, oldEmail)
		s.emails[e.member.Email] = id
	}
	e.member.UpdatedAt = s.now()
	return e.member, nil
}

// Delete removes the member and their journal rows.
func (s *MemoryMemberStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.members[id]
	if !ok {
		s.mu.Unlock()
		return booking.ErrMemberNotFound
	}
	delete(s.emails, e.member.Email)
	delete(s.members, id)
	s.mu.Unlock()

	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	kept := s.journal[:0]
	for _, t := range s.journal {
		if t.MemberID != id {
			kept = append(kept, t)
		}
	}
	s.journal = kept
	return nil
}

// TryDebit subtracts the amount iff the balance covers it.
func (s *MemoryMemberStore) TryDebit(_ context.Context, ce model.CreditEntry) (bool, error) {
	if ce.Amount <= 0 {
		return false, booking.ErrInvalidAmount
	}
	e, err := s.entry(ce.MemberID)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.member.Credits < ce.Amount {
		return false, nil
	}
	e.member.Credits -= ce.Amount
	s.appendJournal(ce, -ce.Amount)
	return true, nil
}

// Credit adds a positive amount.
func (s *MemoryMemberStore) Credit(_ context.Context, ce model.CreditEntry) error {
	if ce.Amount <= 0 {
		return booking.ErrInvalidAmount
	}
	e, err := s.entry(ce.MemberID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.member.Credits += ce.Amount
	s.appendJournal(ce, ce.Amount)
	return nil
}

// Balance returns the member's current credits.
func (s *MemoryMemberStore) Balance(_ context.Context, memberID string) (int, error) {
	e, err := s.entry(memberID)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.member.Credits, nil
}

func (s *MemoryMemberStore) appendJournal(ce model.CreditEntry, signed int) {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	s.journal = append(s.journal, model.CreditTransaction{
		ID:        uuid.NewString(),
		MemberID:  ce.MemberID,
		Kind:      ce.Kind,
		Credits:   signed,
		SessionID: ce.SessionID,
		PackID:    ce.PackID,
		CreatedAt: s.now(),
	})
}

// Transactions returns the member's journal, oldest first.
func (s *MemoryMemberStore) Transactions(_ context.Context, memberID string) ([]model.CreditTransaction, error) {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	out := []model.CreditTransaction{}
	for _, t := range s.journal {
		if t.MemberID == memberID {
			out = append(out, t)
		}
	}
	return out, nil
}

// OutstandingBookingDebits sums booking-related journal entries per
// member, as a positive count of credits held by reservations.
func (s *MemoryMemberStore) OutstandingBookingDebits(_ context.Context) (map[string]int, error) {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	out := make(map[string]int)
	for _, t := range s.journal {
		if t.Kind.Booking() {
			out[t.MemberID] -= t.Credits
		}
	}
	return out, nil
}
