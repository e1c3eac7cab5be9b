package service

import (
    "context"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/studio-booking/internal/model"
    "github.com/iliyamo/studio-booking/internal/queue"
)

// publishTimeout bounds a best-effort publish after the response is decided.
const publishTimeout = 3 * time.Second

// BookingEvents turns reservation changes into broker messages.  A
// failed publish is logged and never fails the booking.
type BookingEvents struct {
    pub Publisher
    log *zap.Logger
    now func() time.Time
}

func NewBookingEvents(pub Publisher, log *zap.Logger) *BookingEvents {
    if pub == nil {
        pub = NopPublisher{}
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &BookingEvents{pub: pub, log: log.Named("events"), now: func() time.Time { return time.Now().UTC() }}
}

// Confirmed publishes a reservation.confirmed event.
func (e *BookingEvents) Confirmed(ctx context.Context, r model.Reservation, s model.ClassSession) {
    e.publish(ctx, queue.QueueReservationConfirmed, r, s, "")
}

// Cancelled publishes a reservation.cancelled event.  reason is empty
// for member cancellations.
func (e *BookingEvents) Cancelled(ctx context.Context, r model.Reservation, s model.ClassSession, reason string) {
    e.publish(ctx, queue.QueueReservationCancelled, r, s, reason)
}

func (e *BookingEvents) publish(ctx context.Context, q string, r model.Reservation, s model.ClassSession, reason string) {
    ev := queue.ReservationEvent{
        Type:          q,
        ReservationID: r.ID,
        MemberID:      r.MemberID,
        SessionID:     r.SessionID,
        SessionTitle:  s.Title,
        Instructor:    s.Instructor,
        Reason:        reason,
        OccurredAt:    e.now().Format(time.RFC3339),
    }
    if !s.StartsAt.IsZero() {
        ev.StartsAt = s.StartsAt.UTC().Format(time.RFC3339)
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
    defer cancel()
    if err := e.pub.Publish(ctx, q, ev); err != nil {
        e.log.Warn("event not published",
            zap.String("queue", q),
            zap.String("reservation_id", r.ID),
            zap.Error(err))
    }
}
