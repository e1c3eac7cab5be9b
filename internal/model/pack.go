package model

import "time"

// CreditPack is a purchasable bundle of credits.
type CreditPack struct {
    ID          string    `json:"id"`          // credit_packs.id
    Name        string    `json:"name"`        // credit_packs.name
    Credits     int       `json:"credits"`     // credit_packs.credits
    PriceCents  int       `json:"price_cents"` // credit_packs.price_cents
    Description string    `json:"description"` // credit_packs.description
    IsActive    bool      `json:"is_active"`   // credit_packs.is_active
    CreatedAt   time.Time `json:"created_at"`  // credit_packs.created_at
    UpdatedAt   time.Time `json:"updated_at"`  // credit_packs.updated_at
}

// Payment status values.
const (
    PaymentPending   = "pending"
    PaymentCompleted = "completed"
)

// Payment tracks a checkout started by a member for a pack.  The
// external processor confirms it; confirmation credits the member
// exactly once.
type Payment struct {
    ID          string     `json:"id"`                     // payments.id
    MemberID    string     `json:"member_id"`              // payments.member_id
    PackID      string     `json:"pack_id"`                // payments.pack_id
    Credits     int        `json:"credits"`                // payments.credits (pack credits at checkout)
    AmountCents int        `json:"amount_cents"`           // payments.amount_cents
    Currency    string     `json:"currency"`               // payments.currency
    Status      string     `json:"status"`                 // payments.status
    CreatedAt   time.Time  `json:"created_at"`             // payments.created_at
    CompletedAt *time.Time `json:"completed_at,omitempty"` // payments.completed_at (nullable)
}

// PackUpdate carries optional pack changes.
type PackUpdate struct {
    Name        *string
    Credits     *int
    PriceCents  *int
    Description *string
    IsActive    *bool
}

// Apply copies the non-nil fields onto p.
func (u PackUpdate) Apply(p *CreditPack) {
    if u.Name != nil {
        p.Name = *u.Name
    }
    if u.Credits != nil {
        p.Credits = *u.Credits
    }
    if u.PriceCents != nil {
        p.PriceCents = *u.PriceCents
    }
    if u.Description != nil {
        p.Description = *u.Description
    }
    if u.IsActive != nil {
        p.IsActive = *u.IsActive
    }
}
