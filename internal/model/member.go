package model

import "time"

// Roles carried in the JWT role claim.
const (
    RoleMember = "MEMBER"
    RoleAdmin  = "ADMIN"
)

// Member status values.
const (
    MemberActive   = "active"
    MemberInactive = "inactive"
)

// Member represents a studio account.  The credit balance is the
// member's wallet and is only changed through the credit account
// operations (debit on reservation, credit on purchase or refund).
// The json tags deliberately omit PasswordHash.
type Member struct {
    ID             string    `json:"id"`              // members.id
    Email          string    `json:"email"`           // members.email
    PasswordHash   string    `json:"-"`               // members.password_hash
    Role           string    `json:"role"`            // members.role
    FirstName      string    `json:"first_name"`      // members.first_name
    LastName       string    `json:"last_name"`       // members.last_name
    Phone          string    `json:"phone"`           // members.phone
    MembershipType string    `json:"membership_type"` // members.membership_type
    Status         string    `json:"status"`          // members.status
    Credits        int       `json:"credits"`         // members.credits
    CreatedAt      time.Time `json:"created_at"`      // members.created_at
    UpdatedAt      time.Time `json:"updated_at"`      // members.updated_at
}

// MemberProfile holds the administrator-editable fields of a member.
// Nil pointers leave the stored value untouched.
type MemberProfile struct {
    Email          *string
    FirstName      *string
    LastName       *string
    Phone          *string
    MembershipType *string
    Status         *string
}

// Apply copies the non-nil profile fields onto m.
func (p MemberProfile) Apply(m *Member) {
    if p.Email != nil {
        m.Email = *p.Email
    }
    if p.FirstName != nil {
        m.FirstName = *p.FirstName
    }
    if p.LastName != nil {
        m.LastName = *p.LastName
    }
    if p.Phone != nil {
        m.Phone = *p.Phone
    }
    if p.MembershipType != nil {
        m.MembershipType = *p.MembershipType
    }
    if p.Status != nil {
        m.Status = *p.Status
    }
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only
// the SHA-256 hash of the raw token is stored.
type RefreshToken struct {
    ID        string     // refresh_tokens.id
    MemberID  string     // refresh_tokens.member_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
