package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/model"
)

// SessionStore is the catalog plus its administrative write side.
type SessionStore interface {
	booking.Catalog
	Create(ctx context.Context, s model.ClassSession) (model.ClassSession, error)
	Update(ctx context.Context, id string, u model.SessionUpdate) (model.ClassSession, error)
	Cancel(ctx context.Context, id string) error
}

// MemberStore is the member directory and its credit account.
type MemberStore interface {
	booking.CreditAccount
	Create(ctx context.Context, m model.Member) (model.Member, error)
	GetByID(ctx context.Context, id string) (model.Member, error)
	GetByEmail(ctx context.Context, email string) (model.Member, error)
	List(ctx context.Context) ([]model.Member, error)
	UpdateProfile(ctx context.Context, id string, p model.MemberProfile) (model.Member, error)
	Delete(ctx context.Context, id string) error
	Transactions(ctx context.Context, memberID string) ([]model.CreditTransaction, error)
}

// PackStore manages credit packs.
type PackStore interface {
	Create(ctx context.Context, p model.CreditPack) (model.CreditPack, error)
	Get(ctx context.Context, id string) (model.CreditPack, error)
	List(ctx context.Context, activeOnly bool) ([]model.CreditPack, error)
	Update(ctx context.Context, id string, u model.PackUpdate) (model.CreditPack, error)
	Delete(ctx context.Context, id string) error
}

// PaymentStore records checkouts.  Complete flips pending to completed
// and reports whether this call made the transition, so a payment is
// credited at most once.  Reopen undoes Complete when crediting fails.
type PaymentStore interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	Get(ctx context.Context, id string) (model.Payment, error)
	Complete(ctx context.Context, id string, at time.Time) (bool, error)
	Reopen(ctx context.Context, id string) error
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, memberID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForMember(ctx context.Context, memberID string) error
}

// Backend bundles one consistent set of stores.  Seats defaults to the
// session store; it is a separate field so a Redis ledger can replace it.
type Backend struct {
	Sessions     SessionStore
	Seats        booking.SeatLedger
	Members      MemberStore
	Reservations booking.ReservationRegistry
	Packs        PackStore
	Payments     PaymentStore
	Tokens       TokenStore
}

// BookingStores returns the stores the coordinator drives.
func (b Backend) BookingStores() booking.Stores {
	return booking.Stores{
		Catalog:  b.Sessions,
		Seats:    b.Seats,
		Credits:  b.Members,
		Registry: b.Reservations,
	}
}

// NewMemoryBackend returns process-local stores.
func NewMemoryBackend() Backend {
	sessions := NewMemorySessionStore()
	return Backend{
		Sessions:     sessions,
		Seats:        sessions,
		Members:      NewMemoryMemberStore(),
		Reservations: NewMemoryReservationStore(),
		Packs:        NewMemoryPackStore(),
		Payments:     NewMemoryPaymentStore(),
		Tokens:       NewMemoryTokenStore(),
	}
}

// NewMySQLBackend returns stores backed by db.
func NewMySQLBackend(db *sql.DB) Backend {
	sessions := NewSessionRepo(db)
	return Backend{
		Sessions:     sessions,
		Seats:        sessions,
		Members:      NewMemberRepo(db),
		Reservations: NewReservationRepo(db),
		Packs:        NewPackRepo(db),
		Payments:     NewPaymentRepo(db),
		Tokens:       NewTokenRepo(db),
	}
}
