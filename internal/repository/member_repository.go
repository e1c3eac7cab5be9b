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

// MemberRepo is the MySQL members table together with the
// credit_transactions journal.  A balance change and its journal row
// are written in the same transaction.
type MemberRepo struct {
    db  *sql.DB
    now func() time.Time
}

// NewMemberRepo returns a MemberRepo bound to db.
func NewMemberRepo(db *sql.DB) *MemberRepo {
    return &MemberRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const memberColumns = `id, email, password_hash, role, first_name, last_name, phone, membership_type, status, credits, created_at, updated_at`

func scanMember(r rowser) (model.Member, error) {
    var m model.Member
    err := r.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.Role, &m.FirstName, &m.LastName,
        &m.Phone, &m.MembershipType, &m.Status, &m.Credits, &m.CreatedAt, &m.UpdatedAt)
    return m, err
}

// Create inserts a member.  Initial credits are journaled as a grant.
func (r *MemberRepo) Create(ctx context.Context, m model.Member) (model.Member, error) {
    if m.ID == "" {
        m.ID = uuid.NewString()
    }
    m.Email = normEmail(m.Email)
    if m.Role == "" {
        m.Role = model.RoleMember
    }
    if m.Status == "" {
        m.Status = model.MemberActive
    }
    now := r.now()
    m.CreatedAt, m.UpdatedAt = now, now

    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Member{}, err
    }
    defer tx.Rollback()

    const q = `INSERT INTO members (` + memberColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    _, err = tx.ExecContext(ctx, q, m.ID, m.Email, m.PasswordHash, m.Role, m.FirstName, m.LastName,
        m.Phone, m.MembershipType, m.Status, m.Credits, m.CreatedAt, m.UpdatedAt)
    if isDuplicate(err, "") {
        return model.Member{}, ErrEmailExists
    }
    if err != nil {
        return model.Member{}, err
    }
    if m.Credits > 0 {
        ce := model.CreditEntry{MemberID: m.ID, Amount: m.Credits, Kind: model.CreditGrant}
        if err := r.journal(ctx, tx, ce, m.Credits); err != nil {
            return model.Member{}, err
        }
    }
    if err := tx.Commit(); err != nil {
        return model.Member{}, err
    }
    return m, nil
}

// GetByID returns the member or booking.ErrMemberNotFound.
func (r *MemberRepo) GetByID(ctx context.Context, id string) (model.Member, error) {
    return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
}

// GetByEmail looks a member up by normalised email.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (model.Member, error) {
    return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, normEmail(email))
}

func (r *MemberRepo) getOne(ctx context.Context, q string, arg any) (model.Member, error) {
    m, err := scanMember(r.db.QueryRowContext(ctx, q, arg))
    if errors.Is(err, sql.ErrNoRows) {
        return model.Member{}, booking.ErrMemberNotFound
    }
    return m, err
}

// List returns all members, oldest first.
func (r *MemberRepo) List(ctx context.Context) ([]model.Member, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY created_at, id`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Member{}
    for rows.Next() {
        m, err := scanMember(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// UpdateProfile applies profile changes.  Credits and role are not
// touched here.
func (r *MemberRepo) UpdateProfile(ctx context.Context, id string, p model.MemberProfile) (model.Member, error) {
    m, err := r.GetByID(ctx, id)
    if err != nil {
        return model.Member{}, err
    }
    p.Apply(&m)
    m.Email = normEmail(m.Email)
    m.UpdatedAt = r.now()
    const q = `UPDATE members SET email = ?, first_name = ?, last_name = ?, phone = ?, membership_type = ?, status = ?, updated_at = ? WHERE id = ?`
    _, err = r.db.ExecContext(ctx, q, m.Email, m.FirstName, m.LastName, m.Phone, m.MembershipType, m.Status, m.UpdatedAt, id)
    if isDuplicate(err, "") {
        return model.Member{}, ErrEmailExists
    }
    if err != nil {
        return model.Member{}, err
    }
    return m, nil
}

// Delete removes a member row.
func (r *MemberRepo) Delete(ctx context.Context, id string) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return booking.ErrMemberNotFound
    }
    return nil
}

// TryDebit subtracts ce.Amount iff credits >= ce.Amount.  The guard
// lives in the WHERE clause so the balance can never go negative.
func (r *MemberRepo) TryDebit(ctx context.Context, ce model.CreditEntry) (bool, error) {
    if ce.Amount <= 0 {
        return false, booking.ErrInvalidAmount
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    defer tx.Rollback()

    const q = `UPDATE members SET credits = credits - ? WHERE id = ? AND credits >= ?`
    res, err := tx.ExecContext(ctx, q, ce.Amount, ce.MemberID, ce.Amount)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    if n == 0 {
        var one int
        err := tx.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id = ?`, ce.MemberID).Scan(&one)
        if errors.Is(err, sql.ErrNoRows) {
            return false, booking.ErrMemberNotFound
        }
        return false, err
    }
    if err := r.journal(ctx, tx, ce, -ce.Amount); err != nil {
        return false, err
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    return true, nil
}

// Credit adds ce.Amount and journals it.
func (r *MemberRepo) Credit(ctx context.Context, ce model.CreditEntry) error {
    if ce.Amount <= 0 {
        return booking.ErrInvalidAmount
    }
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    defer tx.Rollback()

    res, err := tx.ExecContext(ctx, `UPDATE members SET credits = credits + ? WHERE id = ?`, ce.Amount, ce.MemberID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return booking.ErrMemberNotFound
    }
    if err := r.journal(ctx, tx, ce, ce.Amount); err != nil {
        return err
    }
    return tx.Commit()
}

// Balance reads the current credits.
func (r *MemberRepo) Balance(ctx context.Context, memberID string) (int, error) {
    var n int
    err := r.db.QueryRowContext(ctx, `SELECT credits FROM members WHERE id = ?`, memberID).Scan(&n)
    if errors.Is(err, sql.ErrNoRows) {
        return 0, booking.ErrMemberNotFound
    }
    return n, err
}

func (r *MemberRepo) journal(ctx context.Context, tx *sql.Tx, ce model.CreditEntry, signed int) error {
    const q = `INSERT INTO credit_transactions (member_id, kind, credits, session_id, pack_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
    _, err := tx.ExecContext(ctx, q, ce.MemberID, string(ce.Kind), signed,
        nullString(ce.SessionID), nullString(ce.PackID), r.now())
    return err
}

// Transactions returns the member's journal, oldest first.
func (r *MemberRepo) Transactions(ctx context.Context, memberID string) ([]model.CreditTransaction, error) {
    const q = `SELECT id, member_id, kind, credits, session_id, pack_id, created_at
        FROM credit_transactions WHERE member_id = ? ORDER BY id`
    rows, err := r.db.QueryContext(ctx, q, memberID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.CreditTransaction{}
    for rows.Next() {
        var (
            t         model.CreditTransaction
            kind      string
            sess, pkg sql.NullString
        )
        if err := rows.Scan(&t.ID, &t.MemberID, &kind, &t.Credits, &sess, &pkg, &t.CreatedAt); err != nil {
            return nil, err
        }
        t.Kind = model.CreditKind(kind)
        t.SessionID, t.PackID = sess.String, pkg.String
        out = append(out, t)
    }
    return out, rows.Err()
}

// OutstandingBookingDebits sums booking-kind journal rows per member.
func (r *MemberRepo) OutstandingBookingDebits(ctx context.Context) (map[string]int, error) {
    const q = `SELECT member_id, -SUM(credits) FROM credit_transactions
        WHERE kind IN (?, ?, ?) GROUP BY member_id`
    rows, err := r.db.QueryContext(ctx, q,
        string(model.CreditConsumption), string(model.CreditRefund), string(model.CreditCorrection))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make(map[string]int)
    for rows.Next() {
        var (
            id  string
            sum int
        )
        if err := rows.Scan(&id, &sum); err != nil {
            return nil, err
        }
        out[id] = sum
    }
    return out, rows.Err()
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
