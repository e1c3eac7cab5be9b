// Package booking implements seat admission control for class sessions:
// a session is never oversold, and every confirmed reservation is matched
// by exactly one reserved seat and one debited credit.
package booking

import (
	"errors"
	"fmt"
)

// Typed outcomes returned by the coordinator and the stores it drives.
// Business outcomes (full, already booked, insufficient credits) are
// expected results and are not retried.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrReservationNotFound = errors.New("reservation not found")

	ErrAlreadyBooked       = errors.New("already reserved for this session")
	ErrSessionFull         = errors.New("session full")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAlreadyCancelled    = errors.New("reservation already cancelled")
	ErrIdempotencyConflict = errors.New("idempotency key already used for another session")

	ErrMemberHasReservations = errors.New("member holds confirmed reservations")

	ErrForbidden     = errors.New("reservation belongs to another member")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// InconsistencyError reports that the all-or-nothing guarantee was
// violated: a compensating step failed, or reconciliation found a
// counter that disagrees with the registry.
type InconsistencyError struct {
	Op  string
	Err error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("internal inconsistency during %s: %v", e.Op, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// IsInconsistency reports whether err carries an InconsistencyError.
func IsInconsistency(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsConflict checks if the error is an expected business outcome.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrSessionFull) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrIdempotencyConflict) ||
		errors.Is(err, ErrMemberHasReservations)
}
