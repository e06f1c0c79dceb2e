package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
)

type fakeProducts struct {
	items map[string]shop.Product
	calls atomic.Int32
	err   error
}

func (f *fakeProducts) Product(_ context.Context, id string) (shop.Product, error) {
	f.calls.Add(1)
	if f.err != nil {
		return shop.Product{}, f.err
	}
	p, ok := f.items[id]
	if !ok {
		return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
	}
	return p, nil
}

func TestCartTotalsAtCurrentPrice(t *testing.T) {
	f := &fakeProducts{items: map[string]shop.Product{
		"a": {ID: "a", Title: "A", Price: decimal.RequireFromString("10.50"), Quantity: 3},
		"b": {ID: "b", Title: "B", Price: decimal.NewFromInt(4), Quantity: 1},
	}}
	r := NewResolver(f)

	cv, err := r.Cart(context.Background(), shop.Cart{UserID: "u", Items: []shop.CartItem{
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 1},
		{ProductID: "deleted", Quantity: 7},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !cv.TotalPrice.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("total = %s, want 25", cv.TotalPrice)
	}
	if len(cv.Items) != 3 || cv.Items[2].Product != nil {
		t.Fatalf("items = %+v", cv.Items)
	}
}

func TestViewsDeduplicatesLookups(t *testing.T) {
	f := &fakeProducts{items: map[string]shop.Product{"a": {ID: "a"}}}
	r := NewResolver(f)
	if _, err := r.Views(context.Background(), []string{"a", "a", "a"}); err != nil {
		t.Fatal(err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestViewsPropagatesStoreFailure(t *testing.T) {
	r := NewResolver(&fakeProducts{err: errors.New("unavailable")})
	_, err := r.Views(context.Background(), []string{"a"})
	if shop.KindOf(err) != shop.KindInternal || err == nil {
		t.Fatalf("err = %v", err)
	}
}

func TestOrderKeepsSnapshotPrice(t *testing.T) {
	f := &fakeProducts{items: map[string]shop.Product{"a": {ID: "a", Price: decimal.NewFromInt(99)}}}
	ov, err := NewResolver(f).Order(context.Background(), shop.Order{
		ID:    "o1",
		Items: []shop.OrderItem{{ProductID: "a", Quantity: 1, Price: decimal.NewFromInt(10)}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !ov.Items[0].Price.Equal(decimal.NewFromInt(10)) || !ov.Items[0].Product.Price.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("line = %+v", ov.Items[0])
	}
}
