// Package memstore is an in-process shop.Store. Transactions are serialized
// on a single lock and their writes are staged until the unit of work
// returns without error.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

type Store struct {
	mu       sync.Mutex
	products map[string]shop.Product
	carts    map[string]shop.Cart
	orders   map[string]shop.Order

	// FailOn, when set, is consulted before every staged write. A non-nil
	// result fails that write.
	FailOn func(op string) error
}

func New() *Store {
	return &Store{
		products: map[string]shop.Product{},
		carts:    map[string]shop.Cart{},
		orders:   map[string]shop.Order{},
	}
}

func (s *Store) WithTx(ctx context.Context, fn shop.UnitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &tx{
		s:        s,
		products: map[string]shop.Product{},
		carts:    map[string]shop.Cart{},
		orders:   map[string]shop.Order{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, p := range tx.products {
		s.products[id] = p
	}
	for id, c := range tx.carts {
		s.carts[id] = c
	}
	for id, o := range tx.orders {
		s.orders[id] = o
	}
	return nil
}

func (s *Store) Product(_ context.Context, id string) (shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context) ([]shop.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shop.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) PutProduct(_ context.Context, p shop.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *Store) Cart(_ context.Context, userID string) (shop.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return shop.Cart{}, shop.Errorf(shop.KindNotFound, "Cart not found")
	}
	return c.Clone(), nil
}

func (s *Store) Order(_ context.Context, id string) (shop.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return shop.Order{}, shop.Errorf(shop.KindNotFound, "Order not found")
	}
	return o.Clone(), nil
}

func (s *Store) OrdersByUser(_ context.Context, userID string) ([]shop.Order, error) {
	return s.filterOrders(func(o shop.Order) bool { return o.UserID == userID }), nil
}

func (s *Store) Orders(_ context.Context) ([]shop.Order, error) {
	return s.filterOrders(func(shop.Order) bool { return true }), nil
}

// filterOrders returns matches newest first.
func (s *Store) filterOrders(keep func(shop.Order) bool) []shop.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []shop.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type tx struct {
	s        *Store
	products map[string]shop.Product
	carts    map[string]shop.Cart
	orders   map[string]shop.Order
}

func (t *tx) fail(op string) error {
	if t.s.FailOn == nil {
		return nil
	}
	return t.s.FailOn(op)
}

func (t *tx) Product(_ context.Context, id string) (shop.Product, error) {
	if p, ok := t.products[id]; ok {
		return p, nil
	}
	p, ok := t.s.products[id]
	if !ok {
		return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
	}
	return p, nil
}

func (t *tx) SetProductQuantity(ctx context.Context, id string, qty int) error {
	if err := t.fail("SetProductQuantity"); err != nil {
		return err
	}
	p, err := t.Product(ctx, id)
	if err != nil {
		return err
	}
	p.Quantity = qty
	t.products[id] = p
	return nil
}

func (t *tx) LoadCart(_ context.Context, userID string, create bool) (shop.Cart, error) {
	if c, ok := t.carts[userID]; ok {
		return c.Clone(), nil
	}
	if c, ok := t.s.carts[userID]; ok {
		return c.Clone(), nil
	}
	if !create {
		return shop.Cart{}, shop.Errorf(shop.KindNotFound, "Cart not found")
	}
	return shop.Cart{UserID: userID}, nil
}

func (t *tx) SaveCart(_ context.Context, c shop.Cart) error {
	if err := t.fail("SaveCart"); err != nil {
		return err
	}
	t.carts[c.UserID] = c.Clone()
	return nil
}

func (t *tx) Order(_ context.Context, id string) (shop.Order, error) {
	if o, ok := t.orders[id]; ok {
		return o.Clone(), nil
	}
	o, ok := t.s.orders[id]
	if !ok {
		return shop.Order{}, shop.Errorf(shop.KindNotFound, "Order not found")
	}
	return o.Clone(), nil
}

func (t *tx) SaveOrder(_ context.Context, o shop.Order) error {
	if err := t.fail("SaveOrder"); err != nil {
		return err
	}
	t.orders[o.ID] = o.Clone()
	return nil
}
