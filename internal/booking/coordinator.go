package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
)

// creditsPerSeat is the price of one reservation.
const creditsPerSeat = 1

// Stores bundles the components the coordinator drives.
type Stores struct {
	Catalog  Catalog
	Seats    SeatLedger
	Credits  CreditAccount
	Registry ReservationRegistry
}

// Coordinator implements reserve and cancel as all-or-nothing
// operations over the seat ledger, the credit account and the
// reservation registry.  Each store primitive is atomic on its own;
// the coordinator sequences them and compensates on partial failure.
//
// A per (member, session) lock keeps the duplicate check and the
// mutations that follow in one critical section.  Requests for other
// pairs never contend on it.  The gate is held shared by reserve and
// cancel and exclusively by reconciliation and session cancellation.
type Coordinator struct {
	catalog  Catalog
	seats    SeatLedger
	credits  CreditAccount
	registry ReservationRegistry
	log      *zap.Logger

	locks *keyLock
	gate  sync.RWMutex
}

// NewCoordinator panics if any store is nil.
func NewCoordinator(s Stores, log *zap.Logger) *Coordinator {
	if s.Catalog == nil || s.Seats == nil || s.Credits == nil || s.Registry == nil {
		panic("nil store passed to NewCoordinator")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		catalog:  s.Catalog,
		seats:    s.Seats,
		credits:  s.Credits,
		registry: s.Registry,
		log:      log.Named("booking"),
		locks:    newKeyLock(),
	}
}

// Reserve books one seat of sessionID for memberID and debits one credit.
func (c *Coordinator) Reserve(ctx context.Context, memberID, sessionID string) (model.Reservation, error) {
	res, _, err := c.ReserveWithKey(ctx, memberID, sessionID, "")
	return res, err
}

// ReserveWithKey is Reserve with an optional client idempotency key.
// Replaying a key returns the reservation it first produced, whatever
// its current status, with replayed set.  Concurrent requests sharing
// a key serialize on it, so exactly one of them books.
func (c *Coordinator) ReserveWithKey(ctx context.Context, memberID, sessionID, key string) (res model.Reservation, replayed bool, err error) {
	c.gate.RLock()
	defer c.gate.RUnlock()

	lockKeys := []string{"pair:" + memberID + ":" + sessionID}
	if key != "" {
		lockKeys = append(lockKeys, "idem:"+memberID+":"+key)
	}
	unlock := c.locks.Lock(lockKeys...)
	defer unlock()

	if key != "" {
		prev, err := c.registry.FindByIdempotencyKey(ctx, memberID, key)
		switch {
		case err == nil:
			if prev.SessionID != sessionID {
				return model.Reservation{}, false, ErrIdempotencyConflict
			}
			return prev, true, nil
		case !errors.Is(err, ErrReservationNotFound):
			return model.Reservation{}, false, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	res, err = c.reserveLocked(ctx, memberID, sessionID, key)
	return res, false, err
}

func (c *Coordinator) reserveLocked(ctx context.Context, memberID, sessionID, key string) (model.Reservation, error) {
	session, err := c.catalog.Get(ctx, sessionID)
	if err != nil {
		return model.Reservation{}, err
	}
	if session.Cancelled() {
		return model.Reservation{}, ErrSessionNotFound
	}

	booked, err := c.registry.HasActiveReservation(ctx, memberID, sessionID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("check active reservation: %w", err)
	}
	if booked {
		return model.Reservation{}, ErrAlreadyBooked
	}

	// Seat first: it is the contended resource, so a full session
	// fails before touching the member's balance.
	ok, err := c.seats.TryReserve(ctx, sessionID)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reserve seat: %w", err)
	}
	if !ok {
		return model.Reservation{}, ErrSessionFull
	}

	debit := model.CreditEntry{
		MemberID:  memberID,
		Amount:    creditsPerSeat,
		Kind:      model.CreditConsumption,
		SessionID: sessionID,
	}
	ok, err = c.credits.TryDebit(ctx, debit)
	if err != nil || !ok {
		if cerr := c.releaseSeat(ctx, "reserve.debit", memberID, sessionID); cerr != nil {
			return model.Reservation{}, cerr
		}
		if err != nil {
			return model.Reservation{}, err
		}
		return model.Reservation{}, ErrInsufficientCredits
	}

	res, err := c.registry.Create(ctx, memberID, sessionID, key)
	if err != nil {
		cerr := errors.Join(
			c.releaseSeat(ctx, "reserve.create", memberID, sessionID),
			c.refund(ctx, "reserve.create", memberID, sessionID),
		)
		if cerr != nil {
			return model.Reservation{}, cerr
		}
		return model.Reservation{}, fmt.Errorf("create reservation: %w", err)
	}

	c.log.Info("reservation confirmed",
		zap.String("reservation_id", res.ID),
		zap.String("member_id", memberID),
		zap.String("session_id", sessionID))
	return res, nil
}

// Cancel cancels a member's own reservation, releases its seat and
// refunds its credit.  If the registry flip succeeds but a counter
// update fails, the returned error is an InconsistencyError and the
// next reconciliation pass repairs the counters.
func (c *Coordinator) Cancel(ctx context.Context, memberID, reservationID string) (model.Reservation, error) {
	c.gate.RLock()
	defer c.gate.RUnlock()
	return c.cancelLocked(ctx, memberID, reservationID)
}

func (c *Coordinator) cancelLocked(ctx context.Context, memberID, reservationID string) (model.Reservation, error) {
	res, err := c.registry.Cancel(ctx, reservationID, memberID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := errors.Join(
		c.releaseSeat(ctx, "cancel", memberID, res.SessionID),
		c.refund(ctx, "cancel", memberID, res.SessionID),
	); err != nil {
		return res, err
	}
	c.log.Info("reservation cancelled",
		zap.String("reservation_id", res.ID),
		zap.String("member_id", memberID),
		zap.String("session_id", res.SessionID))
	return res, nil
}

// CancelSession runs archive (which marks the session cancelled in the
// catalog) and then cancels every confirmed reservation on it with a
// refund.  Bookings are paused for the duration so no reservation can
// slip in between the two steps.  It returns the reservations refunded.
func (c *Coordinator) CancelSession(ctx context.Context, sessionID string, archive func(context.Context) error) ([]model.Reservation, error) {
	c.gate.Lock()
	defer c.gate.Unlock()

	if _, err := c.catalog.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	if archive != nil {
		if err := archive(ctx); err != nil {
			return nil, fmt.Errorf("archive session: %w", err)
		}
	}
	confirmed, err := c.registry.ListConfirmedForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session reservations: %w", err)
	}
	refunded := make([]model.Reservation, 0, len(confirmed))
	var errs []error
	for _, r := range confirmed {
		res, err := c.cancelLocked(ctx, r.MemberID, r.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		refunded = append(refunded, res)
	}
	c.log.Info("session cancelled",
		zap.String("session_id", sessionID),
		zap.Int("refunded", len(refunded)))
	return refunded, errors.Join(errs...)
}

// DeleteMember runs remove for a member holding no confirmed
// reservation.  Bookings are paused so none can land between the check
// and the removal.
func (c *Coordinator) DeleteMember(ctx context.Context, memberID string, remove func(context.Context) error) error {
	c.gate.Lock()
	defer c.gate.Unlock()

	if _, err := c.credits.Balance(ctx, memberID); err != nil {
		return err
	}
	list, err := c.registry.ListForMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("list member reservations: %w", err)
	}
	for _, r := range list {
		if r.Confirmed() {
			return ErrMemberHasReservations
		}
	}
	if err := remove(ctx); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	c.log.Info("member deleted", zap.String("member_id", memberID))
	return nil
}

// ListForMember returns the member's reservations oldest first.
func (c *Coordinator) ListForMember(ctx context.Context, memberID string) ([]model.Reservation, error) {
	return c.registry.ListForMember(ctx, memberID)
}

// Session returns a catalog entry with its reserved count filled in
// from the seat ledger.  The count is advisory.
func (c *Coordinator) Session(ctx context.Context, sessionID string) (model.ClassSession, error) {
	s, err := c.catalog.Get(ctx, sessionID)
	if err != nil {
		return model.ClassSession{}, err
	}
	return c.withAvailability(ctx, s)
}

// Upcoming lists sessions that have not started, with availability.
func (c *Coordinator) Upcoming(ctx context.Context) ([]model.ClassSession, error) {
	list, err := c.catalog.ListUpcoming(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ClassSession, 0, len(list))
	for _, s := range list {
		s, err = c.withAvailability(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Coordinator) withAvailability(ctx context.Context, s model.ClassSession) (model.ClassSession, error) {
	avail, err := c.seats.AvailableSpots(ctx, s.ID)
	if err != nil {
		return model.ClassSession{}, fmt.Errorf("available spots for %s: %w", s.ID, err)
	}
	s.Reserved = s.Capacity - avail
	return s, nil
}

// releaseSeat is the compensating step for a successful TryReserve.
// It runs detached from ctx so a client disconnect cannot skip it.
func (c *Coordinator) releaseSeat(ctx context.Context, op, memberID, sessionID string) error {
	if err := c.seats.Release(context.WithoutCancel(ctx), sessionID); err != nil {
		c.log.Error("seat release failed",
			zap.String("op", op),
			zap.String("member_id", memberID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return &InconsistencyError{Op: op + ": release seat", Err: err}
	}
	return nil
}

// refund is the compensating step for a successful TryDebit.
func (c *Coordinator) refund(ctx context.Context, op, memberID, sessionID string) error {
	err := c.credits.Credit(context.WithoutCancel(ctx), model.CreditEntry{
		MemberID:  memberID,
		Amount:    creditsPerSeat,
		Kind:      model.CreditRefund,
		SessionID: sessionID,
	})
	if err != nil {
		c.log.Error("credit refund failed",
			zap.String("op", op),
			zap.String("member_id", memberID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return &InconsistencyError{Op: op + ": refund credit", Err: err}
	}
	return nil
}
