package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

type txStore struct {
	s *Store
	t *firestore.Transaction
}

func (x *txStore) Product(_ context.Context, id string) (shop.Product, error) {
	snap, err := x.t.Get(x.s.products().Doc(id))
	if notFound(err) {
		return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
	}
	if err != nil {
		return shop.Product{}, err
	}
	return productFromSnap(snap)
}

// SetProductQuantity updates without reading so it can follow other writes.
func (x *txStore) SetProductQuantity(_ context.Context, id string, qty int) error {
	return x.t.Update(x.s.products().Doc(id), []firestore.Update{
		{Path: "quantity", Value: qty},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
}

func (x *txStore) LoadCart(_ context.Context, userID string, create bool) (shop.Cart, error) {
	snap, err := x.t.Get(x.s.carts().Doc(userID))
	if notFound(err) {
		if create {
			return shop.Cart{UserID: userID}, nil
		}
		return shop.Cart{}, shop.Errorf(shop.KindNotFound, "Cart not found")
	}
	if err != nil {
		return shop.Cart{}, err
	}
	return cartFromSnap(snap)
}

func (x *txStore) SaveCart(_ context.Context, c shop.Cart) error {
	return x.t.Set(x.s.carts().Doc(c.UserID), cartDocFromDomain(c))
}

func (x *txStore) Order(_ context.Context, id string) (shop.Order, error) {
	snap, err := x.t.Get(x.s.orders().Doc(id))
	if notFound(err) {
		return shop.Order{}, shop.Errorf(shop.KindNotFound, "Order not found")
	}
	if err != nil {
		return shop.Order{}, err
	}
	return orderFromSnap(snap)
}

func (x *txStore) SaveOrder(_ context.Context, o shop.Order) error {
	return x.t.Set(x.s.orders().Doc(o.ID), orderDocFromDomain(o))
}
