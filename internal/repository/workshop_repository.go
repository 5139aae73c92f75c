package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rhum-atelier/internal/model"
)

// WorkshopRepo reads and edits the workshop tiers.
type WorkshopRepo struct{ db *sql.DB }

func NewWorkshopRepo(db *sql.DB) *WorkshopRepo { return &WorkshopRepo{db: db} }

const workshopColumns = "id, title, description, level, type, price, price_institutional, is_active, created_at, updated_at"

func scanWorkshop(row rowScanner) (model.Workshop, error) {
	var (
		w    model.Workshop
		inst decimal.NullDecimal
	)
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Level, &w.Type, &w.Price,
		&inst, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrNotFound
	}
	if inst.Valid {
		w.PriceInstitutional = inst.Decimal
	}
	return w, err
}

// List returns workshops ordered by type then level.  When activeOnly is
// set, tiers switched off by the atelier are hidden.
func (r *WorkshopRepo) List(ctx context.Context, activeOnly bool) ([]model.Workshop, error) {
	q := "SELECT " + workshopColumns + " FROM workshops"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY type, level, id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Workshop
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetByID returns one workshop or ErrNotFound.
func (r *WorkshopRepo) GetByID(ctx context.Context, id uint64) (model.Workshop, error) {
	return scanWorkshop(r.db.QueryRowContext(ctx,
		"SELECT "+workshopColumns+" FROM workshops WHERE id = ?", id))
}

// Update overwrites the editable columns of a workshop.  A zero
// PriceInstitutional is stored as NULL so price resolution falls back to
// the public price schedule.
func (r *WorkshopRepo) Update(ctx context.Context, w model.Workshop) error {
	var inst any
	if w.PriceInstitutional.IsPositive() {
		inst = w.PriceInstitutional
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE workshops SET title = ?, description = ?, level = ?, type = ?, price = ?, price_institutional = ?, is_active = ?
		 WHERE id = ?`,
		w.Title, w.Description, w.Level, w.Type, w.Price, inst, w.IsActive, w.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, w.ID); err != nil {
			return err
		}
	}
	return nil
}
