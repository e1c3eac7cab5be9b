package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/studio-booking/internal/model"
)

// PaymentRepo is the MySQL payments table.
type PaymentRepo struct {
    db  *sql.DB
    now func() time.Time
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
    return &PaymentRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const paymentColumns = `id, member_id, pack_id, credits, amount_cents, currency, status, created_at, completed_at`

func (r *PaymentRepo) Create(ctx context.Context, p model.Payment) (model.Payment, error) {
    if p.ID == "" {
        p.ID = uuid.NewString()
    }
    if p.Status == "" {
        p.Status = model.PaymentPending
    }
    p.CreatedAt = r.now()
    const q = `INSERT INTO payments (id, member_id, pack_id, credits, amount_cents, currency, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, p.ID, p.MemberID, p.PackID, p.Credits, p.AmountCents, p.Currency, p.Status, p.CreatedAt)
    if isDuplicate(err, "") {
        return model.Payment{}, ErrConflict
    }
    if err != nil {
        return model.Payment{}, err
    }
    return p, nil
}

func (r *PaymentRepo) Get(ctx context.Context, id string) (model.Payment, error) {
    var (
        p    model.Payment
        done sql.NullTime
    )
    err := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id).
        Scan(&p.ID, &p.MemberID, &p.PackID, &p.Credits, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt, &done)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Payment{}, ErrNotFound
    }
    if err != nil {
        return model.Payment{}, err
    }
    if done.Valid {
        t := done.Time
        p.CompletedAt = &t
    }
    return p, nil
}

// Complete flips pending to completed and reports whether this call
// performed the transition.
func (r *PaymentRepo) Complete(ctx context.Context, id string, at time.Time) (bool, error) {
    const q = `UPDATE payments SET status = ?, completed_at = ? WHERE id = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, model.PaymentCompleted, at.UTC(), id, model.PaymentPending)
    if err != nil {
        return false, err
    }
    if n, _ := res.RowsAffected(); n == 1 {
        return true, nil
    }
    if _, err := r.Get(ctx, id); err != nil {
        return false, err
    }
    return false, nil
}

// Reopen puts a payment back to pending.
func (r *PaymentRepo) Reopen(ctx context.Context, id string) error {
    const q = `UPDATE payments SET status = ?, completed_at = NULL WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, model.PaymentPending, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}
