package model

import "time"

// Session status values stored in class_sessions.status.
const (
    SessionScheduled = "scheduled"
    SessionCancelled = "cancelled"
)

// ClassSession represents a bookable time slot in the studio
// timetable.  Capacity is fixed when the session is created; the
// reserved count is owned by the seat ledger and copied here only
// when a session is read for display.
//
// Fields:
//  ID              – opaque identifier (UUID).
//  Title           – class name shown to members.
//  Instructor      – instructor running the class.
//  StartsAt        – start time in UTC.
//  DurationMinutes – length of the class.
//  Capacity        – number of seats (always > 0).
//  Reserved        – snapshot of confirmed seats at read time.
//  Status          – scheduled or cancelled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type ClassSession struct {
    ID              string    `json:"id"`               // class_sessions.id
    Title           string    `json:"title"`            // class_sessions.title
    Instructor      string    `json:"instructor"`       // class_sessions.instructor
    StartsAt        time.Time `json:"starts_at"`        // class_sessions.starts_at
    DurationMinutes int       `json:"duration_minutes"` // class_sessions.duration_minutes
    Capacity        int       `json:"capacity"`         // class_sessions.capacity
    Reserved        int       `json:"reserved"`         // class_sessions.reserved_count
    Status          string    `json:"status"`           // class_sessions.status
    CreatedAt       time.Time `json:"created_at"`       // class_sessions.created_at
    UpdatedAt       time.Time `json:"updated_at"`       // class_sessions.updated_at
}

// Available returns capacity minus reserved, never negative.
func (s ClassSession) Available() int {
    if n := s.Capacity - s.Reserved; n > 0 {
        return n
    }
    return 0
}

// EndsAt is StartsAt plus the session duration.
func (s ClassSession) EndsAt() time.Time {
    return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Cancelled reports whether an administrator has cancelled the session.
func (s ClassSession) Cancelled() bool { return s.Status == SessionCancelled }

// SessionUpdate carries the administrator-editable fields of a session.
// Capacity is not among them: it is fixed once the session exists.
type SessionUpdate struct {
    Title           *string
    Instructor      *string
    StartsAt        *time.Time
    DurationMinutes *int
}

// Apply copies the non-nil fields onto s.
func (u SessionUpdate) Apply(s *ClassSession) {
    if u.Title != nil {
        s.Title = *u.Title
    }
    if u.Instructor != nil {
        s.Instructor = *u.Instructor
    }
    if u.StartsAt != nil {
        s.StartsAt = u.StartsAt.UTC()
    }
    if u.DurationMinutes != nil {
        s.DurationMinutes = *u.DurationMinutes
    }
}
