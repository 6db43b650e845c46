// Package memory is an in-process implementation of the storefront
// repositories. Transactions are serialized by a store-wide lock and rolled
// back through an undo log, which gives the same all-or-nothing and
// no-oversell guarantees the SQL store gets from the database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domcart "example.com/storefront/app/internal/domain/cart"
	domorder "example.com/storefront/app/internal/domain/order"
	domoutbox "example.com/storefront/app/internal/domain/outbox"
	domproduct "example.com/storefront/app/internal/domain/product"
	domsettings "example.com/storefront/app/internal/domain/settings"
	"example.com/storefront/app/internal/domain/uow"
)

type Store struct {
	mu sync.Mutex

	products map[int64]*domproduct.Product
	carts    map[int64][]domcart.Item
	orders   map[int64]*domorder.Order
	settings domsettings.StoreSettings
	outbox   []*domoutbox.Event

	nextOrderID   int64
	nextItemID    int64
	nextPaymentID int64
	nextEventID   int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		products: make(map[int64]*domproduct.Product),
		carts:    make(map[int64][]domcart.Item),
		orders:   make(map[int64]*domorder.Order),
		now:      time.Now,
	}
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p domproduct.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(&p)
}

func (s *Store) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

func (s *Store) SetSettings(st domsettings.StoreSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st
}

func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{s: s} }
func (s *Store) Settings() *SettingsRepository { return &SettingsRepository{s: s} }

// Do runs fn while holding the store lock. Store methods other than the ones
// reached through the Scope must not be called from fn.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, sc uow.Scope) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txScope{s: s}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type txScope struct {
	s    *Store
	undo []func()
}

func (t *txScope) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

func (t *txScope) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *txScope) Ledger() domproduct.Ledger { return txLedger{t} }
func (t *txScope) Orders() domorder.TxRepository { return txOrders{t} }
func (t *txScope) Settings() domsettings.Repository { return txSettings{t} }
func (t *txScope) Carts() uow.CartClearer { return txCarts{t} }
func (t *txScope) Outbox() domoutbox.Writer { return txOutbox{t} }

type txLedger struct{ t *txScope }

func (l txLedger) Reserve(_ context.Context, productID int64, qty int64) error {
	p, ok := l.t.s.products[productID]
	if !ok || !p.IsActive {
		return domproduct.ErrProductNotFound
	}
	if p.Stock < qty {
		return domproduct.ErrOutOfStock
	}
	p.Stock -= qty
	l.t.onRollback(func() { p.Stock += qty })
	return nil
}

func (l txLedger) Release(_ context.Context, productID int64, qty int64) (bool, error) {
	p, ok := l.t.s.products[productID]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	l.t.onRollback(func() { p.Stock -= qty })
	return true, nil
}

type txOrders struct{ t *txScope }

func (r txOrders) Create(_ context.Context, o *domorder.Order) error {
	s := r.t.s
	s.nextOrderID++
	o.ID = s.nextOrderID
	o.CreatedAt = s.now().UTC()
	for i := range o.Items {
		s.nextItemID++
		o.Items[i].ID = s.nextItemID
		o.Items[i].OrderID = o.ID
	}
	s.nextPaymentID++
	o.Payment.ID = s.nextPaymentID
	o.Payment.OrderID = o.ID

	id := o.ID
	s.orders[id] = cloneOrder(o)
	r.t.onRollback(func() { delete(s.orders, id) })
	return nil
}

func (r txOrders) GetForUpdate(_ context.Context, id int64) (*domorder.Order, error) {
	o, ok := r.t.s.orders[id]
	if !ok {
		return nil, domorder.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r txOrders) UpdateStatus(_ context.Context, id int64, status domorder.Status) error {
	o, ok := r.t.s.orders[id]
	if !ok {
		return domorder.ErrOrderNotFound
	}
	prev := o.Status
	o.Status = status
	r.t.onRollback(func() { o.Status = prev })
	return nil
}

func (r txOrders) UpdatePaymentStatus(_ context.Context, orderID int64, status domorder.PaymentStatus) error {
	o, ok := r.t.s.orders[orderID]
	if !ok {
		return domorder.ErrOrderNotFound
	}
	prev := o.Payment.Status
	o.Payment.Status = status
	r.t.onRollback(func() { o.Payment.Status = prev })
	return nil
}

type txSettings struct{ t *txScope }

func (r txSettings) Get(context.Context) (domsettings.StoreSettings, error) {
	return r.t.s.settings, nil
}

type txCarts struct{ t *txScope }

func (r txCarts) Clear(_ context.Context, userID int64) error {
	s := r.t.s
	prev, ok := s.carts[userID]
	delete(s.carts, userID)
	if ok {
		r.t.onRollback(func() { s.carts[userID] = prev })
	}
	return nil
}

type txOutbox struct{ t *txScope }

func (r txOutbox) Append(_ context.Context, e domoutbox.Event) error {
	s := r.t.s
	s.nextEventID++
	e.ID = s.nextEventID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	s.outbox = append(s.outbox, &e)
	n := len(s.outbox) - 1
	r.t.onRollback(func() { s.outbox = s.outbox[:n] })
	return nil
}

type ProductRepository struct{ s *Store }

func (r *ProductRepository) GetByID(_ context.Context, id int64) (*domproduct.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domproduct.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []int64) ([]*domproduct.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domproduct.Product, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

// List returns matching products, newest first.
func (r *ProductRepository) List(_ context.Context, filter domproduct.ListFilter) ([]*domproduct.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := strings.ToLower(filter.Search)
	out := make([]*domproduct.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if filter.OnlyActive && !p.IsActive {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type CartRepository struct{ s *Store }

func (r *CartRepository) AddOrUpdateItem(_ context.Context, userID int64, productID int64, quantity int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := r.s.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			return nil
		}
	}
	r.s.carts[userID] = append(items, domcart.Item{ProductID: productID, Quantity: quantity})
	return nil
}

func (r *CartRepository) ListItems(_ context.Context, userID int64) ([]domcart.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	items := make([]domcart.Item, len(r.s.carts[userID]))
	copy(items, r.s.carts[userID])
	return items, nil
}

func (r *CartRepository) Clear(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.carts, userID)
	return nil
}

type OrderRepository struct{ s *Store }

func (r *OrderRepository) List(context.Context) ([]*domorder.Order, error) {
	return r.filter(func(*domorder.Order) bool { return true }), nil
}

func (r *OrderRepository) ListByUser(_ context.Context, userID int64) ([]*domorder.Order, error) {
	return r.filter(func(o *domorder.Order) bool {
		return o.UserID != nil && *o.UserID == userID
	}), nil
}

func (r *OrderRepository) GetByID(_ context.Context, id int64) (*domorder.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, domorder.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

// Count is the number of persisted orders.
func (r *OrderRepository) Count() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.orders)
}

func (r *OrderRepository) filter(keep func(*domorder.Order) bool) []*domorder.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domorder.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

type OutboxRepository struct{ s *Store }

func (r *OutboxRepository) FetchPending(_ context.Context, limit int) ([]domoutbox.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domoutbox.Event
	for _, e := range r.s.outbox {
		if e.SentAt != nil {
			continue
		}
		out = append(out, *e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.outbox {
		if e.ID == id {
			now := r.s.now().UTC()
			e.SentAt = &now
			return nil
		}
	}
	return nil
}

type SettingsRepository struct{ s *Store }

func (r *SettingsRepository) Get(context.Context) (domsettings.StoreSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.settings, nil
}

func cloneProduct(p *domproduct.Product) *domproduct.Product {
	c := *p
	if p.Discount != nil {
		d := *p.Discount
		c.Discount = &d
	}
	return &c
}

func cloneOrder(o *domorder.Order) *domorder.Order {
	c := *o
	if o.UserID != nil {
		uid := *o.UserID
		c.UserID = &uid
	}
	c.Items = make([]domorder.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}
