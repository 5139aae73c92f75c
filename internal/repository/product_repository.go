package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rhum-atelier/internal/model"
)

// ProductRepo reads the shop catalog and owns the stock column of
// product_volumes.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ListWithVolumes returns active products with their volumes, in one query.
func (r *ProductRepo) ListWithVolumes(ctx context.Context) ([]model.Product, error) {
	const q = `SELECT p.id, p.name, p.description, p.is_active, p.created_at, p.updated_at,
	                  v.id, v.size, v.unit, v.price, v.stock, v.updated_at
	           FROM products p
	           JOIN product_volumes v ON v.product_id = p.id
	           WHERE p.is_active = 1
	           ORDER BY p.id, v.size`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var (
			p model.Product
			v model.ProductVolume
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
			&v.ID, &v.Size, &v.Unit, &v.Price, &v.Stock, &v.UpdatedAt); err != nil {
			return nil, err
		}
		v.ProductID = p.ID
		if n := len(out); n > 0 && out[n-1].ID == p.ID {
			out[n-1].Volumes = append(out[n-1].Volumes, v)
			continue
		}
		p.Volumes = []model.ProductVolume{v}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetVolume returns a volume with the name of its product.  Volumes of
// inactive products are reported as ErrNotFound.
func (r *ProductRepo) GetVolume(ctx context.Context, id uint64) (model.ProductVolume, string, error) {
	var (
		v    model.ProductVolume
		name string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT v.id, v.product_id, v.size, v.unit, v.price, v.stock, v.updated_at, p.name
		 FROM product_volumes v JOIN products p ON p.id = v.product_id
		 WHERE v.id = ? AND p.is_active = 1`, id).
		Scan(&v.ID, &v.ProductID, &v.Size, &v.Unit, &v.Price, &v.Stock, &v.UpdatedAt, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return v, "", ErrNotFound
	}
	return v, name, err
}

// DecrementStockTx removes qty bottles from a volume inside the payment
// confirmation transaction.  The conditional update never lets stock go
// negative; when it matches no row the volume is short (or gone) and
// ErrInsufficientStock is returned so the caller rolls back.
func (r *ProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, volumeID uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE product_volumes SET stock = stock - ? WHERE id = ? AND stock >= ?",
		qty, volumeID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// SetStock overwrites the stock of a volume (admin restock).
func (r *ProductRepo) SetStock(ctx context.Context, volumeID uint64, stock int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE product_volumes SET stock = ? WHERE id = ?", stock, volumeID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM product_volumes WHERE id = ?", volumeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
