package service

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/database"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

// OrderTx is the unit of work shared by finalization and cohort
// operations.  Every method runs inside the same database transaction.
type OrderTx interface {
    LockOrder(ctx context.Context, orderID uint64) (model.Order, error)
    LockItem(ctx context.Context, orderID, itemID uint64) (model.Order, model.OrderItem, error)
    DecrementStock(ctx context.Context, volumeID uint64, qty int) error
    InsertParticipants(ctx context.Context, ps []model.Participant) error
    CertifyParticipant(ctx context.Context, p model.Participant) error
    MarkPaid(ctx context.Context, orderID uint64, paymentRef string, paidAt time.Time) error
    GetUser(ctx context.Context, id uint64) (model.User, error)
}

// Store opens transactions and persists new orders.
type Store interface {
    InTx(ctx context.Context, fn func(tx OrderTx) error) error
    CreatePendingOrder(ctx context.Context, o *model.Order) error
    AttachCheckoutSession(ctx context.Context, orderID uint64, sessionID string) error
}

// SQLStore implements Store on MySQL through the repositories.
type SQLStore struct {
    DB           *sql.DB
    Orders       *repository.OrderRepo
    Products     *repository.ProductRepo
    Participants *repository.ParticipantRepo
    Users        *repository.UserRepo
}

// NewSQLStore wires the repositories on db.
func NewSQLStore(db *sql.DB) *SQLStore {
    return &SQLStore{
        DB:           db,
        Orders:       repository.NewOrderRepo(db),
        Products:     repository.NewProductRepo(db),
        Participants: repository.NewParticipantRepo(db),
        Users:        repository.NewUserRepo(db),
    }
}

// InTx runs fn in a transaction, committing only when fn returns nil.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx OrderTx) error) error {
    return database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
        return fn(&sqlOrderTx{s: s, tx: tx})
    })
}

// CreatePendingOrder inserts the order and its items atomically.
func (s *SQLStore) CreatePendingOrder(ctx context.Context, o *model.Order) error {
    return database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
        return s.Orders.CreatePendingTx(ctx, tx, o)
    })
}

// AttachCheckoutSession records the provider session of a pending order.
func (s *SQLStore) AttachCheckoutSession(ctx context.Context, orderID uint64, sessionID string) error {
    return s.Orders.SetCheckoutSession(ctx, orderID, sessionID)
}

type sqlOrderTx struct {
    s  *SQLStore
    tx *sql.Tx
}

func (t *sqlOrderTx) LockOrder(ctx context.Context, orderID uint64) (model.Order, error) {
    return t.s.Orders.LockTx(ctx, t.tx, orderID)
}

func (t *sqlOrderTx) LockItem(ctx context.Context, orderID, itemID uint64) (model.Order, model.OrderItem, error) {
    return t.s.Orders.LockItemTx(ctx, t.tx, orderID, itemID)
}

func (t *sqlOrderTx) DecrementStock(ctx context.Context, volumeID uint64, qty int) error {
    return t.s.Products.DecrementStockTx(ctx, t.tx, volumeID, qty)
}

func (t *sqlOrderTx) InsertParticipants(ctx context.Context, ps []model.Participant) error {
    return t.s.Participants.InsertTx(ctx, t.tx, ps)
}

func (t *sqlOrderTx) CertifyParticipant(ctx context.Context, p model.Participant) error {
    return t.s.Participants.CertifyTx(ctx, t.tx, p)
}

func (t *sqlOrderTx) MarkPaid(ctx context.Context, orderID uint64, paymentRef string, paidAt time.Time) error {
    return t.s.Orders.MarkPaidTx(ctx, t.tx, orderID, paymentRef, paidAt)
}

func (t *sqlOrderTx) GetUser(ctx context.Context, id uint64) (model.User, error) {
    return t.s.Users.GetByID(ctx, id)
}

// Catalog resolves the bookable items referenced by cart lines.
type Catalog interface {
    GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error)
    GetVolume(ctx context.Context, id uint64) (model.ProductVolume, string, error)
}

// RepoCatalog implements Catalog on the repositories.
type RepoCatalog struct {
    Workshops *repository.WorkshopRepo
    Products  *repository.ProductRepo
}

func (c RepoCatalog) GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
    return c.Workshops.GetByID(ctx, id)
}

func (c RepoCatalog) GetVolume(ctx context.Context, id uint64) (model.ProductVolume, string, error) {
    return c.Products.GetVolume(ctx, id)
}

// MemberDirectory resolves passport codes to member profiles.
type MemberDirectory interface {
    LookupMember(ctx context.Context, code string) (booking.MemberProfile, error)
}

// UserDirectory implements MemberDirectory on the users table.
type UserDirectory struct {
    Users *repository.UserRepo
}

// LookupMember returns ErrUnknownMemberCode for codes nobody holds.
func (d UserDirectory) LookupMember(ctx context.Context, code string) (booking.MemberProfile, error) {
    u, err := d.Users.GetByMemberCode(ctx, code)
    if errors.Is(err, repository.ErrNotFound) {
        return booking.MemberProfile{}, ErrUnknownMemberCode
    }
    if err != nil {
        return booking.MemberProfile{}, err
    }
    return booking.ProfileFromUser(u), nil
}
