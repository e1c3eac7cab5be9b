// Package queue defines message payloads exchanged over the message broker
// and the consumer loop that processes them.
package queue

// Queue names.  Each event type has its own durable queue.
const (
    QueueReservationConfirmed = "reservation.confirmed"
    QueueReservationCancelled = "reservation.cancelled"
    QueuePaymentConfirmed     = "payment.confirmed"
)

// ReservationEvent is published after a reservation is confirmed or
// cancelled.  It carries enough for downstream consumers to log or notify
// without querying the primary store.
type ReservationEvent struct {
    Type          string `json:"type"` // one of the reservation queue names
    ReservationID string `json:"reservation_id"`
    MemberID      string `json:"member_id"`
    SessionID     string `json:"session_id"`
    SessionTitle  string `json:"session_title"`
    Instructor    string `json:"instructor"`
    StartsAt      string `json:"starts_at"`
    Reason        string `json:"reason,omitempty"` // e.g. "session_cancelled"
    OccurredAt    string `json:"occurred_at"`
}

// PaymentConfirmedEvent is sent by the payment processor bridge once a
// checkout has been paid.
type PaymentConfirmedEvent struct {
    PaymentID string `json:"payment_id"`
    Reference string `json:"reference,omitempty"`
}
