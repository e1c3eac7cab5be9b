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

// ReservationRepo is the MySQL reservations table.  Confirmed rows carry
// active_pair = "member:session"; the unique index on that column keeps
// one confirmed reservation per pair even without the coordinator.
type ReservationRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
    return &ReservationRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const reservationColumns = `id, member_id, session_id, status, idempotency_key, created_at, cancelled_at`

func scanReservation(r rowser) (model.Reservation, error) {
    var (
        res       model.Reservation
        key       sql.NullString
        cancelled sql.NullTime
    )
    if err := r.Scan(&res.ID, &res.MemberID, &res.SessionID, &res.Status, &key, &res.CreatedAt, &cancelled); err != nil {
        return model.Reservation{}, err
    }
    res.IdempotencyKey = key.String
    if cancelled.Valid {
        t := cancelled.Time
        res.CancelledAt = &t
    }
    return res, nil
}

func activePair(memberID, sessionID string) string { return memberID + ":" + sessionID }

// HasActiveReservation reports whether a confirmed row exists.
func (r *ReservationRepo) HasActiveReservation(ctx context.Context, memberID, sessionID string) (bool, error) {
    var ok bool
    err := r.db.QueryRowContext(ctx,
        `SELECT EXISTS(SELECT 1 FROM reservations WHERE active_pair = ?)`,
        activePair(memberID, sessionID)).Scan(&ok)
    return ok, err
}

// Create inserts a confirmed reservation.
func (r *ReservationRepo) Create(ctx context.Context, memberID, sessionID, key string) (model.Reservation, error) {
    res := model.Reservation{
        ID:             uuid.NewString(),
        MemberID:       memberID,
        SessionID:      sessionID,
        Status:         model.ReservationConfirmed,
        IdempotencyKey: key,
        CreatedAt:      r.now(),
    }
    const q = `INSERT INTO reservations (id, member_id, session_id, status, idempotency_key, active_pair, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, res.ID, memberID, sessionID, res.Status,
        nullString(key), activePair(memberID, sessionID), res.CreatedAt)
    switch {
    case isDuplicate(err, "uq_reservations_idem"):
        return model.Reservation{}, booking.ErrIdempotencyConflict
    case isDuplicate(err, ""):
        return model.Reservation{}, booking.ErrAlreadyBooked
    case err != nil:
        return model.Reservation{}, err
    }
    return res, nil
}

// Get returns the reservation or booking.ErrReservationNotFound.
func (r *ReservationRepo) Get(ctx context.Context, id string) (model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, booking.ErrReservationNotFound
    }
    return res, err
}

// FindByIdempotencyKey returns the reservation created with key.
func (r *ReservationRepo) FindByIdempotencyKey(ctx context.Context, memberID, key string) (model.Reservation, error) {
    res, err := scanReservation(r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE member_id = ? AND idempotency_key = ?`, memberID, key))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, booking.ErrReservationNotFound
    }
    return res, err
}

// Cancel locks the row, checks ownership and status, then flips it.
func (r *ReservationRepo) Cancel(ctx context.Context, id, requestingMemberID string) (model.Reservation, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Reservation{}, err
    }
    defer tx.Rollback()

    res, err := scanReservation(tx.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, booking.ErrReservationNotFound
    }
    if err != nil {
        return model.Reservation{}, err
    }
    if res.MemberID != requestingMemberID {
        return model.Reservation{}, booking.ErrForbidden
    }
    if !res.Confirmed() {
        return model.Reservation{}, booking.ErrAlreadyCancelled
    }
    at := r.now()
    const q = `UPDATE reservations SET status = ?, cancelled_at = ?, active_pair = NULL WHERE id = ?`
    if _, err := tx.ExecContext(ctx, q, model.ReservationCancelled, at, id); err != nil {
        return model.Reservation{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Reservation{}, err
    }
    res.Status = model.ReservationCancelled
    res.CancelledAt = &at
    return res, nil
}

// ListForMember returns the member's reservations oldest first.
func (r *ReservationRepo) ListForMember(ctx context.Context, memberID string) ([]model.Reservation, error) {
    return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE member_id = ? ORDER BY created_at, id`, memberID)
}

// ListConfirmedForSession returns the confirmed reservations of a session.
func (r *ReservationRepo) ListConfirmedForSession(ctx context.Context, sessionID string) ([]model.Reservation, error) {
    return r.query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE session_id = ? AND status = ? ORDER BY created_at, id`,
        sessionID, model.ReservationConfirmed)
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Reservation{}
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}

// ConfirmedCounts groups confirmed rows by session and by member.
func (r *ReservationRepo) ConfirmedCounts(ctx context.Context) (map[string]int, map[string]int, error) {
    bySession, err := r.countBy(ctx, "session_id")
    if err != nil {
        return nil, nil, err
    }
    byMember, err := r.countBy(ctx, "member_id")
    if err != nil {
        return nil, nil, err
    }
    return bySession, byMember, nil
}

// countBy only receives the two fixed column names above.
func (r *ReservationRepo) countBy(ctx context.Context, column string) (map[string]int, error) {
    q := `SELECT ` + column + `, COUNT(*) FROM reservations WHERE status = ? GROUP BY ` + column
    rows, err := r.db.QueryContext(ctx, q, model.ReservationConfirmed)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[string]int)
    for rows.Next() {
        var (
            id string
            n  int
        )
        if err := rows.Scan(&id, &n); err != nil {
            return nil, err
        }
        out[id] = n
    }
    return out, rows.Err()
}
