package booking

import (
	"context"

	"github.com/iliyamo/studio-booking/internal/model"
)

// Catalog supplies session metadata.  The coordinator only reads it.
type Catalog interface {
	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (model.ClassSession, error)
	// ListUpcoming returns scheduled sessions that have not started yet,
	// ordered by start time ascending.
	ListUpcoming(ctx context.Context) ([]model.ClassSession, error)
	// List returns every session, cancelled ones included.
	List(ctx context.Context) ([]model.ClassSession, error)
}

// SeatLedger holds per-session reserved counters.  TryReserve must be
// atomic per session: with one seat left, two concurrent calls yield
// exactly one true.
type SeatLedger interface {
	// TryReserve increments the reserved count iff it is below capacity.
	// A full session returns false and no error.
	TryReserve(ctx context.Context, sessionID string) (bool, error)
	// Release decrements the reserved count, floored at zero.
	Release(ctx context.Context, sessionID string) error
	// AvailableSpots is an advisory snapshot.
	AvailableSpots(ctx context.Context, sessionID string) (int, error)
	// Sync overwrites the reserved count with a recomputed value and
	// returns the value it replaced.  It also opens the ledger entry
	// for sessions the ledger has never seen.
	Sync(ctx context.Context, session model.ClassSession, reserved int) (int, error)
}

// CreditAccount holds member balances.  Every change is journaled.
type CreditAccount interface {
	// TryDebit subtracts e.Amount iff the balance covers it.
	TryDebit(ctx context.Context, e model.CreditEntry) (bool, error)
	// Credit adds e.Amount (purchase, grant, refund or correction).
	Credit(ctx context.Context, e model.CreditEntry) error
	// Balance is a snapshot read.
	Balance(ctx context.Context, memberID string) (int, error)
	// OutstandingBookingDebits returns, per member, the credits held by
	// reservations according to the journal: consumption minus refunds
	// and corrections.
	OutstandingBookingDebits(ctx context.Context) (map[string]int, error)
}

// ReservationRegistry is the authoritative record of reservations.
type ReservationRegistry interface {
	// HasActiveReservation is true iff a confirmed row exists for the pair.
	HasActiveReservation(ctx context.Context, memberID, sessionID string) (bool, error)
	// Create inserts a confirmed reservation.  It does not check for
	// duplicates; the coordinator does that under its keyed lock.
	Create(ctx context.Context, memberID, sessionID, idempotencyKey string) (model.Reservation, error)
	// Get returns the reservation or ErrReservationNotFound.
	Get(ctx context.Context, reservationID string) (model.Reservation, error)
	// FindByIdempotencyKey returns the reservation a member created with
	// key, or ErrReservationNotFound.
	FindByIdempotencyKey(ctx context.Context, memberID, key string) (model.Reservation, error)
	// Cancel flips a confirmed reservation to cancelled.  It fails with
	// ErrReservationNotFound, ErrForbidden or ErrAlreadyCancelled.
	Cancel(ctx context.Context, reservationID, requestingMemberID string) (model.Reservation, error)
	// ListForMember returns the member's reservations oldest first.
	ListForMember(ctx context.Context, memberID string) ([]model.Reservation, error)
	// ListConfirmedForSession returns the confirmed reservations of a session.
	ListConfirmedForSession(ctx context.Context, sessionID string) ([]model.Reservation, error)
	// ConfirmedCounts counts confirmed rows per session and per member.
	ConfirmedCounts(ctx context.Context) (bySession, byMember map[string]int, err error)
}
