package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rhum-atelier/internal/model"
)

// ParticipantRepo stores the attendee slots of workshop order items.
type ParticipantRepo struct{ db *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

// ParticipantView is what the public certification page shows for a slot.
type ParticipantView struct {
	ParticipantID string `json:"participant_id"`
	OrderID       uint64 `json:"order_id"`
	ItemID        uint64 `json:"item_id"`
	WorkshopTitle string `json:"workshop_title"`
	WorkshopLevel int    `json:"workshop_level"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	IsValidated   bool   `json:"is_validated"`
}

const participantColumns = "id, order_item_id, first_name, last_name, email, phone, member_code, is_validated, created_at, updated_at"

func scanParticipant(row rowScanner) (model.Participant, error) {
	var (
		p    model.Participant
		code sql.NullString
	)
	err := row.Scan(&p.ID, &p.OrderItemID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&code, &p.IsValidated, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if code.Valid {
		p.MemberCode = &code.String
	}
	return p, err
}

// InsertTx inserts slots in a single statement.  Passing an empty slice
// has no effect.
func (r *ParticipantRepo) InsertTx(ctx context.Context, tx *sql.Tx, ps []model.Participant) error {
	if len(ps) == 0 {
		return nil
	}
	query := "INSERT INTO participants (id, order_item_id, first_name, last_name, email, phone, member_code, is_validated) VALUES "
	args := make([]any, 0, len(ps)*8)
	for i, p := range ps {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, p.ID, p.OrderItemID, p.FirstName, p.LastName, p.Email, p.Phone, p.MemberCode, p.IsValidated)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// CertifyTx writes the identity of a slot.  Rows that are already
// validated are never rewritten; such an attempt reports ErrConflict.
func (r *ParticipantRepo) CertifyTx(ctx context.Context, tx *sql.Tx, p model.Participant) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE participants SET first_name = ?, last_name = ?, email = ?, phone = ?, member_code = ?, is_validated = ?
		 WHERE id = ? AND is_validated = 0`,
		p.FirstName, p.LastName, p.Email, p.Phone, p.MemberCode, p.IsValidated, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// Locate returns the order and item a participant slot belongs to.
func (r *ParticipantRepo) Locate(ctx context.Context, id string) (orderID, itemID uint64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT i.order_id, i.id FROM participants p JOIN order_items i ON i.id = p.order_item_id WHERE p.id = ?`,
		id).Scan(&orderID, &itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNotFound
	}
	return orderID, itemID, err
}

// PublicView returns the slot summary shown behind a QR code.
func (r *ParticipantRepo) PublicView(ctx context.Context, id string) (ParticipantView, error) {
	var v ParticipantView
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, i.order_id, i.id, w.title, w.level, p.first_name, p.last_name, p.is_validated
		 FROM participants p
		 JOIN order_items i ON i.id = p.order_item_id
		 JOIN workshops w ON w.id = i.workshop_id
		 WHERE p.id = ?`, id).
		Scan(&v.ParticipantID, &v.OrderID, &v.ItemID, &v.WorkshopTitle, &v.WorkshopLevel,
			&v.FirstName, &v.LastName, &v.IsValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}

func (r *ParticipantRepo) listForItems(ctx context.Context, q querier, itemIDs []uint64) (map[uint64][]model.Participant, error) {
	ph := make([]string, len(itemIDs))
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		ph[i] = "?"
		args[i] = id
	}
	rows, err := q.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE order_item_id IN ("+strings.Join(ph, ",")+") ORDER BY created_at, id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.Participant, len(itemIDs))
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out[p.OrderItemID] = append(out[p.OrderItemID], p)
	}
	return out, rows.Err()
}
