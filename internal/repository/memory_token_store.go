package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/studio-booking/internal/model"
)

// MemoryTokenStore keeps refresh token hashes in memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken // token hash -> row
	now    func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*model.RefreshToken), now: func() time.Time { return time.Now().UTC() }}
}

// StoreRefresh records a refresh token hash.
func (s *MemoryTokenStore) StoreRefresh(_ context.Context, memberID, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = &model.RefreshToken{
		MemberID:  memberID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: s.now(),
	}
	return nil
}

// ValidateRefresh returns the member id of a live token.
func (s *MemoryTokenStore) ValidateRefresh(_ context.Context, tokenHash string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || s.now().After(t.ExpiresAt) {
		return "", ErrNotFound
	}
	return t.MemberID, nil
}

// RevokeByHash marks a token as revoked.
func (s *MemoryTokenStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		at := s.now()
		t.RevokedAt = &at
	}
	return nil
}

// RevokeAllForMember revokes all of a member's active tokens.
func (s *MemoryTokenStore) RevokeAllForMember(_ context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now()
	for _, t := range s.tokens {
		if t.MemberID == memberID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}
