package service

import (
    "context"
    "maps"
    "sync"
    "time"

    "github.com/iliyamo/rhum-atelier/internal/booking"
    "github.com/iliyamo/rhum-atelier/internal/model"
    "github.com/iliyamo/rhum-atelier/internal/payment"
    "github.com/iliyamo/rhum-atelier/internal/queue"
    "github.com/iliyamo/rhum-atelier/internal/repository"
)

// memStore is an in-memory Store.  InTx serializes callers (like a row
// lock) and restores the previous state when fn fails.
type memStore struct {
    mu       sync.Mutex
    orders   map[uint64]model.Order
    stock    map[uint64]int
    users    map[uint64]model.User
    sessions map[uint64]string
    nextID   uint64
}

func newMemStore() *memStore {
    return &memStore{
        orders:   map[uint64]model.Order{},
        stock:    map[uint64]int{},
        users:    map[uint64]model.User{},
        sessions: map[uint64]string{},
        nextID:   1000,
    }
}

func cloneOrder(o model.Order) model.Order {
    items := make([]model.OrderItem, len(o.Items))
    for i, it := range o.Items {
        it.Participants = append([]model.Participant(nil), it.Participants...)
        items[i] = it
    }
    o.Items = items
    return o
}

func (m *memStore) InTx(ctx context.Context, fn func(tx OrderTx) error) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    orders := make(map[uint64]model.Order, len(m.orders))
    for id, o := range m.orders {
        orders[id] = cloneOrder(o)
    }
    stock := maps.Clone(m.stock)
    if err := fn(memTx{m}); err != nil {
        m.orders, m.stock = orders, stock
        return err
    }
    return nil
}

func (m *memStore) CreatePendingOrder(ctx context.Context, o *model.Order) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.nextID++
    o.ID = m.nextID
    o.Status = model.OrderPendingPayment
    for i := range o.Items {
        m.nextID++
        o.Items[i].ID = m.nextID
        o.Items[i].OrderID = o.ID
    }
    m.orders[o.ID] = cloneOrder(*o)
    return nil
}

func (m *memStore) AttachCheckoutSession(ctx context.Context, orderID uint64, sessionID string) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.sessions[orderID] = sessionID
    o := m.orders[orderID]
    o.CheckoutSessionID = &sessionID
    m.orders[orderID] = o
    return nil
}

func (m *memStore) order(id uint64) model.Order {
    m.mu.Lock()
    defer m.mu.Unlock()
    return cloneOrder(m.orders[id])
}

func (m *memStore) stockOf(id uint64) int {
    m.mu.Lock()
    defer m.mu.Unlock()
    return m.stock[id]
}

type memTx struct{ m *memStore }

func (t memTx) LockOrder(ctx context.Context, id uint64) (model.Order, error) {
    o, ok := t.m.orders[id]
    if !ok {
        return model.Order{}, repository.ErrNotFound
    }
    return cloneOrder(o), nil
}

func (t memTx) LockItem(ctx context.Context, orderID, itemID uint64) (model.Order, model.OrderItem, error) {
    o, err := t.LockOrder(ctx, orderID)
    if err != nil {
        return o, model.OrderItem{}, err
    }
    for _, it := range o.Items {
        if it.ID == itemID {
            return o, it, nil
        }
    }
    return o, model.OrderItem{}, repository.ErrNotFound
}

func (t memTx) DecrementStock(ctx context.Context, volumeID uint64, qty int) error {
    if t.m.stock[volumeID] < qty {
        return repository.ErrInsufficientStock
    }
    t.m.stock[volumeID] -= qty
    return nil
}

func (t memTx) InsertParticipants(ctx context.Context, ps []model.Participant) error {
    for _, p := range ps {
        err := t.m.updateItem(p.OrderItemID, func(it *model.OrderItem) error {
            it.Participants = append(it.Participants, p)
            return nil
        })
        if err != nil {
            return err
        }
    }
    return nil
}

func (t memTx) CertifyParticipant(ctx context.Context, p model.Participant) error {
    return t.m.updateItem(p.OrderItemID, func(it *model.OrderItem) error {
        for i := range it.Participants {
            if it.Participants[i].ID == p.ID {
                if it.Participants[i].IsValidated {
                    return repository.ErrConflict
                }
                it.Participants[i] = p
                return nil
            }
        }
        return repository.ErrNotFound
    })
}

func (t memTx) MarkPaid(ctx context.Context, id uint64, ref string, at time.Time) error {
    o := t.m.orders[id]
    if !o.IsPending() {
        return repository.ErrConflict
    }
    o.Status, o.PaymentRef, o.PaidAt = model.OrderPaid, &ref, &at
    t.m.orders[id] = o
    return nil
}

func (t memTx) GetUser(ctx context.Context, id uint64) (model.User, error) {
    u, ok := t.m.users[id]
    if !ok {
        return u, repository.ErrNotFound
    }
    return u, nil
}

func (m *memStore) updateItem(itemID uint64, fn func(*model.OrderItem) error) error {
    for id, o := range m.orders {
        for i := range o.Items {
            if o.Items[i].ID == itemID {
                if err := fn(&o.Items[i]); err != nil {
                    return err
                }
                m.orders[id] = o
                return nil
            }
        }
    }
    return repository.ErrNotFound
}

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.OrderConfirmedEvent
    err    error
}

func (p *recordingPublisher) PublishOrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) count() int {
    p.mu.Lock()
    defer p.mu.Unlock()
    return len(p.events)
}

type mapDirectory map[string]booking.MemberProfile

func (d mapDirectory) LookupMember(ctx context.Context, code string) (booking.MemberProfile, error) {
    p, ok := d[code]
    if !ok {
        return p, ErrUnknownMemberCode
    }
    return p, nil
}

type fakeCatalog struct {
    workshops map[uint64]model.Workshop
    volumes   map[uint64]model.ProductVolume
}

func (c fakeCatalog) GetWorkshop(ctx context.Context, id uint64) (model.Workshop, error) {
    w, ok := c.workshops[id]
    if !ok {
        return w, repository.ErrNotFound
    }
    return w, nil
}

func (c fakeCatalog) GetVolume(ctx context.Context, id uint64) (model.ProductVolume, string, error) {
    v, ok := c.volumes[id]
    if !ok {
        return v, "", repository.ErrNotFound
    }
    return v, "Rhum vanille", nil
}

type fakeGateway struct {
    got payment.SessionRequest
    err error
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
    g.got = req
    if g.err != nil {
        return payment.Session{}, g.err
    }
    return payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func ptr[T any](v T) *T { return &v }
