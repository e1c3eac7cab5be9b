package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/studio-booking/internal/model"
)

// PackRepo is the MySQL credit_packs table.
type PackRepo struct {
    db  *sql.DB
    now func() time.Time
}

func NewPackRepo(db *sql.DB) *PackRepo {
    return &PackRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

const packColumns = `id, name, credits, price_cents, description, is_active, created_at, updated_at`

func scanPack(r rowser) (model.CreditPack, error) {
    var p model.CreditPack
    err := r.Scan(&p.ID, &p.Name, &p.Credits, &p.PriceCents, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
    return p, err
}

func (r *PackRepo) Create(ctx context.Context, p model.CreditPack) (model.CreditPack, error) {
    if p.ID == "" {
        p.ID = uuid.NewString()
    }
    now := r.now()
    p.CreatedAt, p.UpdatedAt = now, now
    const q = `INSERT INTO credit_packs (` + packColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, p.ID, p.Name, p.Credits, p.PriceCents, p.Description, p.IsActive, p.CreatedAt, p.UpdatedAt)
    if isDuplicate(err, "") {
        return model.CreditPack{}, ErrConflict
    }
    if err != nil {
        return model.CreditPack{}, err
    }
    return p, nil
}

func (r *PackRepo) Get(ctx context.Context, id string) (model.CreditPack, error) {
    p, err := scanPack(r.db.QueryRowContext(ctx, `SELECT `+packColumns+` FROM credit_packs WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.CreditPack{}, ErrNotFound
    }
    return p, err
}

// List returns packs cheapest first, optionally only the active ones.
func (r *PackRepo) List(ctx context.Context, activeOnly bool) ([]model.CreditPack, error) {
    q := `SELECT ` + packColumns + ` FROM credit_packs`
    var args []any
    if activeOnly {
        q += ` WHERE is_active = ?`
        args = append(args, true)
    }
    q += ` ORDER BY price_cents, name`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.CreditPack{}
    for rows.Next() {
        p, err := scanPack(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

func (r *PackRepo) Update(ctx context.Context, id string, u model.PackUpdate) (model.CreditPack, error) {
    p, err := r.Get(ctx, id)
    if err != nil {
        return model.CreditPack{}, err
    }
    u.Apply(&p)
    p.UpdatedAt = r.now()
    const q = `UPDATE credit_packs SET name = ?, credits = ?, price_cents = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ?`
    if _, err := r.db.ExecContext(ctx, q, p.Name, p.Credits, p.PriceCents, p.Description, p.IsActive, p.UpdatedAt, id); err != nil {
        return model.CreditPack{}, err
    }
    return p, nil
}

func (r *PackRepo) Delete(ctx context.Context, id string) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM credit_packs WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}
