package model

import "time"

// Reservation status values.  A reservation never moves from
// cancelled back to confirmed; booking again creates a new row.
const (
    ReservationConfirmed = "confirmed"
    ReservationCancelled = "cancelled"
)

// Reservation records one member's claim on one seat of a session.
//
// Fields:
//  ID             – primary key identifier (UUID).
//  MemberID       – member holding the seat.
//  SessionID      – session being reserved.
//  Status         – confirmed or cancelled.
//  IdempotencyKey – optional client token used to dedupe retries.
//  CreatedAt      – creation timestamp, used for ordering.
//  CancelledAt    – when the reservation was cancelled (nil while confirmed).
type Reservation struct {
    ID             string     `json:"id"`                        // reservations.id
    MemberID       string     `json:"member_id"`                 // reservations.member_id
    SessionID      string     `json:"session_id"`                // reservations.session_id
    Status         string     `json:"status"`                    // reservations.status
    IdempotencyKey string     `json:"idempotency_key,omitempty"` // reservations.idempotency_key
    CreatedAt      time.Time  `json:"created_at"`                // reservations.created_at
    CancelledAt    *time.Time `json:"cancelled_at,omitempty"`    // reservations.cancelled_at (nullable)
}

// Confirmed reports whether the reservation still holds a seat.
func (r Reservation) Confirmed() bool { return r.Status == ReservationConfirmed }
