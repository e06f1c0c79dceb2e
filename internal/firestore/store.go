// Package firestore stores products, carts and orders in Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colProducts = "products"
	colCarts    = "carts"
	colOrders   = "orders"
)

var _ shop.Store = (*Store)(nil)

type Store struct {
	Client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{Client: client}
}

func (s *Store) products() *firestore.CollectionRef { return s.Client.Collection(colProducts) }
func (s *Store) carts() *firestore.CollectionRef { return s.Client.Collection(colCarts) }
func (s *Store) orders() *firestore.CollectionRef { return s.Client.Collection(colOrders) }

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// WithTx runs fn in a Firestore transaction. Firestore may run fn more than
// once and rejects reads issued after the first write.
func (s *Store) WithTx(ctx context.Context, fn shop.UnitOfWork) error {
	if s.Client == nil {
		return errors.New("firestore client is nil")
	}
	return s.Client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &txStore{s: s, t: t})
	})
}

func (s *Store) Product(ctx context.Context, id string) (shop.Product, error) {
	snap, err := s.products().Doc(id).Get(ctx)
	if notFound(err) {
		return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
	}
	if err != nil {
		return shop.Product{}, err
	}
	return productFromSnap(snap)
}

func (s *Store) ListProducts(ctx context.Context) ([]shop.Product, error) {
	it := s.products().OrderBy("title", firestore.Asc).Documents(ctx)
	defer it.Stop()

	var out []shop.Product
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := productFromSnap(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) PutProduct(ctx context.Context, p shop.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.products().Doc(p.ID).Set(ctx, productDocFromDomain(p))
	return err
}

func (s *Store) Cart(ctx context.Context, userID string) (shop.Cart, error) {
	snap, err := s.carts().Doc(userID).Get(ctx)
	if notFound(err) {
		return shop.Cart{}, shop.Errorf(shop.KindNotFound, "Cart not found")
	}
	if err != nil {
		return shop.Cart{}, err
	}
	return cartFromSnap(snap)
}

func (s *Store) Order(ctx context.Context, id string) (shop.Order, error) {
	snap, err := s.orders().Doc(id).Get(ctx)
	if notFound(err) {
		return shop.Order{}, shop.Errorf(shop.KindNotFound, "Order not found")
	}
	if err != nil {
		return shop.Order{}, err
	}
	return orderFromSnap(snap)
}

// OrdersByUser needs a composite index on (userId, createdAt desc).
func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]shop.Order, error) {
	q := s.orders().Where("userId", "==", userID).OrderBy("createdAt", firestore.Desc)
	return collectOrders(q.Documents(ctx))
}

func (s *Store) Orders(ctx context.Context) ([]shop.Order, error) {
	return collectOrders(s.orders().OrderBy("createdAt", firestore.Desc).Documents(ctx))
}

func collectOrders(it *firestore.DocumentIterator) ([]shop.Order, error) {
	defer it.Stop()
	var out []shop.Order
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		o, err := orderFromSnap(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
}

func productFromSnap(snap *firestore.DocumentSnapshot) (shop.Product, error) {
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return shop.Product{}, err
	}
	return d.toDomain(snap.Ref.ID)
}

func cartFromSnap(snap *firestore.DocumentSnapshot) (shop.Cart, error) {
	var d cartDoc
	if err := snap.DataTo(&d); err != nil {
		return shop.Cart{}, err
	}
	return d.toDomain(snap.Ref.ID), nil
}

func orderFromSnap(snap *firestore.DocumentSnapshot) (shop.Order, error) {
	var d orderDoc
	if err := snap.DataTo(&d); err != nil {
		return shop.Order{}, err
	}
	return d.toDomain(snap.Ref.ID)
}
