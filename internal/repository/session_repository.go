package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/studio-booking/internal/booking"
    "github.com/iliyamo/studio-booking/internal/model"
)

// SessionRepo is the MySQL class_sessions table.  It serves as the
// catalog and, through reserved_count, as the seat ledger.  Seat
// changes are single conditional UPDATE statements so the row lock
// taken by InnoDB serialises concurrent writers on the same session.
type SessionRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewSessionRepo returns a SessionRepo bound to db.
func NewSessionRepo(db *sql.DB) *SessionRepo {
    return &SessionRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const sessionColumns = `id, title, instructor, starts_at, duration_minutes, capacity, reserved_count, status, created_at, updated_at`

func scanSession(r rowser) (model.ClassSession, error) {
    var s model.ClassSession
    err := r.Scan(&s.ID, &s.Title, &s.Instructor, &s.StartsAt, &s.DurationMinutes,
        &s.Capacity, &s.Reserved, &s.Status, &s.CreatedAt, &s.UpdatedAt)
    return s, err
}

// Create inserts a new scheduled session with no reservations.
func (r *SessionRepo) Create(ctx context.Context, s model.ClassSession) (model.ClassSession, error) {
    if s.ID == "" {
        s.ID = uuid.NewString()
    }
    now := r.now()
    s.Reserved = 0
    s.Status = model.SessionScheduled
    s.StartsAt = s.StartsAt.UTC()
    s.CreatedAt, s.UpdatedAt = now, now
    const q = `INSERT INTO class_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, s.ID, s.Title, s.Instructor, s.StartsAt, s.DurationMinutes,
        s.Capacity, s.Reserved, s.Status, s.CreatedAt, s.UpdatedAt)
    if isDuplicate(err, "") {
        return model.ClassSession{}, ErrConflict
    }
    if err != nil {
        return model.ClassSession{}, err
    }
    return s, nil
}

// Get returns one session or booking.ErrSessionNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.ClassSession, error) {
    const q = `SELECT ` + sessionColumns + ` FROM class_sessions WHERE id = ?`
    s, err := scanSession(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.ClassSession{}, booking.ErrSessionNotFound
    }
    return s, err
}

// List returns every session ordered by start time.
func (r *SessionRepo) List(ctx context.Context) ([]model.ClassSession, error) {
    const q = `SELECT ` + sessionColumns + ` FROM class_sessions ORDER BY starts_at, id`
    return r.query(ctx, q)
}

// ListUpcoming returns scheduled sessions that have not started.
func (r *SessionRepo) ListUpcoming(ctx context.Context) ([]model.ClassSession, error) {
    const q = `SELECT ` + sessionColumns + ` FROM class_sessions
        WHERE status = ? AND starts_at >= ? ORDER BY starts_at, id`
    return r.query(ctx, q, model.SessionScheduled, r.now())
}

func (r *SessionRepo) query(ctx context.Context, q string, args ...any) ([]model.ClassSession, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.ClassSession{}
    for rows.Next() {
        s, err := scanSession(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, s)
    }
    return out, rows.Err()
}

// Update changes descriptive fields.  Capacity is never modified.
func (r *SessionRepo) Update(ctx context.Context, id string, u model.SessionUpdate) (model.ClassSession, error) {
    s, err := r.Get(ctx, id)
    if err != nil {
        return model.ClassSession{}, err
    }
    u.Apply(&s)
    s.UpdatedAt = r.now()
    const q = `UPDATE class_sessions SET title = ?, instructor = ?, starts_at = ?, duration_minutes = ?, updated_at = ? WHERE id = ?`
    if _, err := r.db.ExecContext(ctx, q, s.Title, s.Instructor, s.StartsAt.UTC(), s.DurationMinutes, s.UpdatedAt, id); err != nil {
        return model.ClassSession{}, err
    }
    return s, nil
}

// Cancel marks the session cancelled.
func (r *SessionRepo) Cancel(ctx context.Context, id string) error {
    const q = `UPDATE class_sessions SET status = ?, updated_at = ? WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, model.SessionCancelled, r.now(), id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return r.mustExist(ctx, id)
    }
    return nil
}

// TryReserve claims one seat iff reserved_count < capacity.
func (r *SessionRepo) TryReserve(ctx context.Context, id string) (bool, error) {
    const q = `UPDATE class_sessions SET reserved_count = reserved_count + 1 WHERE id = ? AND reserved_count < capacity`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 1 {
        return true, nil
    }
    return false, r.mustExist(ctx, id)
}

// Release gives one seat back, never going below zero.
func (r *SessionRepo) Release(ctx context.Context, id string) error {
    const q = `UPDATE class_sessions SET reserved_count = reserved_count - 1 WHERE id = ? AND reserved_count > 0`
    res, err := r.db.ExecContext(ctx, q, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return r.mustExist(ctx, id)
    }
    return nil
}

// AvailableSpots reads capacity minus reserved_count.
func (r *SessionRepo) AvailableSpots(ctx context.Context, id string) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT capacity - reserved_count FROM class_sessions WHERE id = ?`, id).Scan(&n)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, booking.ErrSessionNotFound
    }
    if n < 0 {
        n = 0
    }
    return n, err
}

// Sync overwrites reserved_count inside a locking transaction and
// returns the previous value.
func (r *SessionRepo) Sync(ctx context.Context, s model.ClassSession, reserved int) (int, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    defer tx.Rollback()

    var prev int
    err = tx.QueryRowContext(ctx, `SELECT reserved_count FROM class_sessions WHERE id = ? FOR UPDATE`, s.ID).Scan(&prev)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, booking.ErrSessionNotFound
    }
    if err != nil {
        return 0, err
    }
    if prev != reserved {
        if _, err := tx.ExecContext(ctx, `UPDATE class_sessions SET reserved_count = ? WHERE id = ?`, reserved, s.ID); err != nil {
            return 0, err
        }
    }
    return prev, tx.Commit()
}

// mustExist turns a zero-row update into ErrSessionNotFound when the
// row is missing and nil otherwise.
func (r *SessionRepo) mustExist(ctx context.Context, id string) error {
    var one int
    err := r.db.QueryRowContext(ctx, `SELECT 1 FROM class_sessions WHERE id = ?`, id).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return booking.ErrSessionNotFound
    }
    return err
}
