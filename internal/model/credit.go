package model

import "time"

// CreditKind classifies an entry in the credit journal.
type CreditKind string

const (
    CreditPurchase    CreditKind = "purchase"    // pack bought through a payment
    CreditGrant       CreditKind = "grant"       // administrator top-up
    CreditConsumption CreditKind = "consumption" // debit for a reservation
    CreditRefund      CreditKind = "refund"      // credit back on cancellation
    CreditCorrection  CreditKind = "correction"  // reconciliation adjustment
)

// Booking reports whether entries of this kind take part in the
// reservation/credit correspondence checked by reconciliation.
func (k CreditKind) Booking() bool {
    switch k {
    case CreditConsumption, CreditRefund, CreditCorrection:
        return true
    }
    return false
}

// CreditEntry describes a balance change requested from the credit
// account.  Amount is always positive; the direction is given by
// the operation (debit or credit).
type CreditEntry struct {
    MemberID  string
    Amount    int
    Kind      CreditKind
    SessionID string
    PackID    string
}

// CreditTransaction is one journal row.  Credits is signed: negative
// for debits, positive for credits.
type CreditTransaction struct {
    ID        string     `json:"id"`                   // credit_transactions.id
    MemberID  string     `json:"member_id"`            // credit_transactions.member_id
    Kind      CreditKind `json:"kind"`                 // credit_transactions.kind
    Credits   int        `json:"credits"`              // credit_transactions.credits
    SessionID string     `json:"session_id,omitempty"` // credit_transactions.session_id
    PackID    string     `json:"pack_id,omitempty"`    // credit_transactions.pack_id
    CreatedAt time.Time  `json:"created_at"`           // credit_transactions.created_at
}
