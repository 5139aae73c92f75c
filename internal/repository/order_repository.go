package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rhum-atelier/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can be
// shared between plain lookups and locked transactional reads.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OrderRepo persists orders and their items.  Participants of workshop
// items are loaded through ParticipantRepo.
type OrderRepo struct {
	db           *sql.DB
	participants *ParticipantRepo
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db, participants: NewParticipantRepo(db)}
}

const orderColumns = "id, user_id, is_business, status, total, checkout_session_id, payment_ref, paid_at, created_at, updated_at"

func scanOrder(row rowScanner) (model.Order, error) {
	var (
		o       model.Order
		session sql.NullString
		ref     sql.NullString
		paidAt  sql.NullTime
	)
	err := row.Scan(&o.ID, &o.UserID, &o.IsBusiness, &o.Status, &o.Total, &session, &ref,
		&paidAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	if session.Valid {
		o.CheckoutSessionID = &session.String
	}
	if ref.Valid {
		o.PaymentRef = &ref.String
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	return o, nil
}

// CreatePendingTx inserts an order in EN_ATTENTE_PAIEMENT with all of its
// items inside the caller's transaction.  Generated ids are written back to
// o and its items.
func (r *OrderRepo) CreatePendingTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	o.Status = model.OrderPendingPayment
	res, err := tx.ExecContext(ctx,
		"INSERT INTO orders (user_id, is_business, status, total) VALUES (?, ?, ?, ?)",
		o.UserID, o.IsBusiness, o.Status, o.Total)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)

	const insItem = `INSERT INTO order_items (order_id, workshop_id, volume_id, quantity, unit_price, is_business, label, level, participants_json)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		var declared any
		if len(it.Declared) > 0 {
			b, err := json.Marshal(it.Declared)
			if err != nil {
				return fmt.Errorf("encode participants: %w", err)
			}
			declared = string(b)
		}
		res, err := tx.ExecContext(ctx, insItem, o.ID, it.WorkshopID, it.VolumeID, it.Quantity,
			it.UnitPrice, it.IsBusiness, it.Label, it.Level, declared)
		if err != nil {
			return err
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID = uint64(itemID)
	}
	return nil
}

// SetCheckoutSession records the payment session opened for a pending order.
func (r *OrderRepo) SetCheckoutSession(ctx context.Context, orderID uint64, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE orders SET checkout_session_id = ? WHERE id = ? AND status = ?",
		sessionID, orderID, model.OrderPendingPayment)
	return err
}

// GetByID returns an order with its items and participants.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		return o, err
	}
	o.Items, err = r.loadItems(ctx, r.db, o.ID, false)
	return o, err
}

// ListByUser returns a user's orders, newest first, with items and
// participants.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, r.db, out[i].ID, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LockTx reads an order with SELECT ... FOR UPDATE so concurrent webhook
// deliveries for the same order serialize on the row.  Items and their
// participants are read in the same transaction.
func (r *OrderRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return o, err
	}
	o.Items, err = r.loadItems(ctx, tx, o.ID, false)
	return o, err
}

// LockItemTx locks one order item row and returns it with its
// participants, together with the owning order (status and booker).
func (r *OrderRepo) LockItemTx(ctx context.Context, tx *sql.Tx, orderID, itemID uint64) (model.Order, model.OrderItem, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", orderID))
	if err != nil {
		return o, model.OrderItem{}, err
	}
	items, err := r.loadItems(ctx, tx, orderID, true, itemID)
	if err != nil {
		return o, model.OrderItem{}, err
	}
	if len(items) == 0 {
		return o, model.OrderItem{}, ErrNotFound
	}
	return o, items[0], nil
}

// MarkPaidTx moves a pending order to PAYE.  It reports ErrConflict when
// the order is no longer pending.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, paymentRef string, paidAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, payment_ref = ?, paid_at = ? WHERE id = ? AND status = ?",
		model.OrderPaid, paymentRef, paidAt, id, model.OrderPendingPayment)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// AdvanceStatus moves an order to status `to` when its current status is
// one of `from`.  ErrConflict means the order exists in another state.
func (r *OrderRepo) AdvanceStatus(ctx context.Context, id uint64, to string, from ...string) error {
	if len(from) == 0 {
		return ErrConflict
	}
	args := []any{to, id}
	ph := make([]string, len(from))
	for i, s := range from {
		ph[i] = "?"
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = ? WHERE id = ? AND status IN ("+strings.Join(ph, ",")+")", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var status string
	err = r.db.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status == to {
		return nil
	}
	return ErrConflict
}

// DeleteAbandoned removes pending orders created before cutoff.  Items
// go with them through ON DELETE CASCADE.
func (r *OrderRepo) DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM orders WHERE status = ? AND created_at < ?",
		model.OrderPendingPayment, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Label and level are read from the item itself, as they were at checkout.
// The catalog join only names rows written before the snapshot columns.
const itemSelect = `SELECT i.id, i.order_id, i.workshop_id, i.volume_id, i.quantity, i.unit_price, i.is_business,
       i.participants_json, i.label, i.level, COALESCE(w.title, p.name, ''), v.size, v.unit
FROM order_items i
LEFT JOIN workshops w ON w.id = i.workshop_id
LEFT JOIN product_volumes v ON v.id = i.volume_id
LEFT JOIN products p ON p.id = v.product_id
WHERE i.order_id = ?`

// loadItems reads the items of an order.  With lock set, the selected item
// rows are locked FOR UPDATE; onlyIDs narrows the read to given item ids.
func (r *OrderRepo) loadItems(ctx context.Context, q querier, orderID uint64, lock bool, onlyIDs ...uint64) ([]model.OrderItem, error) {
	query := itemSelect
	args := []any{orderID}
	if len(onlyIDs) > 0 {
		ph := make([]string, len(onlyIDs))
		for i, id := range onlyIDs {
			ph[i] = "?"
			args = append(args, id)
		}
		query += " AND i.id IN (" + strings.Join(ph, ",") + ")"
	}
	query += " ORDER BY i.id"
	if lock {
		query += " FOR UPDATE"
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		items []model.OrderItem
		ids   []uint64
	)
	for rows.Next() {
		var (
			it       model.OrderItem
			workshop sql.NullInt64
			volume   sql.NullInt64
			declared []byte
			joined   string
			size     decimal.NullDecimal
			unit     sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &workshop, &volume, &it.Quantity, &it.UnitPrice,
			&it.IsBusiness, &declared, &it.Label, &it.Level, &joined, &size, &unit); err != nil {
			return nil, err
		}
		if workshop.Valid {
			id := uint64(workshop.Int64)
			it.WorkshopID = &id
		}
		if volume.Valid {
			id := uint64(volume.Int64)
			it.VolumeID = &id
		}
		if it.Label == "" {
			it.Label = joined
			if size.Valid && unit.Valid {
				it.Label += " " + size.Decimal.String() + " " + unit.String
			}
		}
		if len(declared) > 0 {
			if err := json.Unmarshal(declared, &it.Declared); err != nil {
				return nil, fmt.Errorf("decode participants of item %d: %w", it.ID, err)
			}
		}
		items = append(items, it)
		if it.IsWorkshop() {
			ids = append(ids, it.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return items, nil
	}
	byItem, err := r.participants.listForItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Participants = byItem[items[i].ID]
	}
	return items, nil
}
