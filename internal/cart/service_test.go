package cart

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-bookstore-orders/internal/catalog"
	"github.com/ariefcatur/go-bookstore-orders/internal/memstore"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func newService(t *testing.T, stock int) (*Service, *memstore.Store) {
	t.Helper()
	s := memstore.New()
	err := s.PutProduct(context.Background(), shop.Product{
		ID: "book", Title: "Go in Action", Price: decimal.NewFromInt(10), Quantity: stock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewService(s, catalog.NewResolver(s), nil), s
}

func stock(t *testing.T, s *memstore.Store) int {
	t.Helper()
	p, err := s.Product(context.Background(), "book")
	if err != nil {
		t.Fatal(err)
	}
	return p.Quantity
}

func TestAddThenRemoveRestoresStock(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 5)

	cv, err := svc.AddItem(ctx, "u1", "book", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Items) != 1 || cv.Items[0].Quantity != 2 {
		t.Fatalf("items = %+v", cv.Items)
	}
	if !cv.TotalPrice.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("total = %s", cv.TotalPrice)
	}
	if got := stock(t, s); got != 3 {
		t.Fatalf("stock after add = %d, want 3", got)
	}

	if _, err := svc.AddItem(ctx, "u1", "book", 1); err != nil {
		t.Fatal(err)
	}
	c, _ := s.Cart(ctx, "u1")
	if len(c.Items) != 1 || c.Items[0].Quantity != 3 {
		t.Fatalf("merge failed: %+v", c.Items)
	}

	cv, err = svc.RemoveItem(ctx, "u1", "book")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Items) != 0 {
		t.Fatalf("items = %+v", cv.Items)
	}
	if got := stock(t, s); got != 5 {
		t.Fatalf("stock after remove = %d, want 5", got)
	}
}

func TestAddItemErrors(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 2)

	cases := []struct {
		name    string
		product string
		qty     int
		want    error
	}{
		{"zero quantity", "book", 0, shop.ErrValidation},
		{"missing product", "ghost", 1, shop.ErrNotFound},
		{"more than stock", "book", 3, shop.ErrOutOfStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AddItem(ctx, "u1", tc.product, tc.qty)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if got := stock(t, s); got != 2 {
				t.Fatalf("stock = %d, want 2", got)
			}
		})
	}
}

func TestIncrementAndDecrement(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 5)
	if _, err := svc.AddItem(ctx, "u1", "book", 2); err != nil {
		t.Fatal(err)
	}

	t.Run("increment reserves", func(t *testing.T) {
		if _, err := svc.IncrementItem(ctx, "u1", "book", 2); err != nil {
			t.Fatal(err)
		}
		if got := stock(t, s); got != 1 {
			t.Fatalf("stock = %d, want 1", got)
		}
	})

	t.Run("increment past stock", func(t *testing.T) {
		_, err := svc.IncrementItem(ctx, "u1", "book", 2)
		if !errors.Is(err, shop.ErrOutOfStock) {
			t.Fatalf("err = %v", err)
		}
		c, _ := s.Cart(ctx, "u1")
		if c.Items[0].Quantity != 4 {
			t.Fatalf("line = %d, want 4", c.Items[0].Quantity)
		}
	})

	t.Run("decrement releases", func(t *testing.T) {
		cv, err := svc.DecrementItem(ctx, "u1", "book", 1)
		if err != nil {
			t.Fatal(err)
		}
		if cv.Items[0].Quantity != 3 || stock(t, s) != 2 {
			t.Fatalf("line = %d stock = %d", cv.Items[0].Quantity, stock(t, s))
		}
	})

	t.Run("decrement past line releases only the line", func(t *testing.T) {
		cv, err := svc.DecrementItem(ctx, "u1", "book", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(cv.Items) != 0 {
			t.Fatalf("items = %+v", cv.Items)
		}
		if got := stock(t, s); got != 5 {
			t.Fatalf("stock = %d, want 5", got)
		}
	})

	t.Run("line missing", func(t *testing.T) {
		_, err := svc.DecrementItem(ctx, "u1", "book", 1)
		if !errors.Is(err, shop.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("cart missing", func(t *testing.T) {
		_, err := svc.IncrementItem(ctx, "nobody", "book", 1)
		if !errors.Is(err, shop.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestFailedCartWriteLeavesStock(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 5)
	s.FailOn = func(op string) error {
		if op == "SaveCart" {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := svc.AddItem(ctx, "u1", "book", 2)
	if shop.KindOf(err) != shop.KindInternal {
		t.Fatalf("err = %v", err)
	}
	if shop.MessageOf(err) != "Failed to add product to cart" {
		t.Fatalf("message = %q", shop.MessageOf(err))
	}
	if got := stock(t, s); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestFailedCartWriteKeepsReservation(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 5)
	if _, err := svc.AddItem(ctx, "u1", "book", 2); err != nil {
		t.Fatal(err)
	}
	s.FailOn = func(op string) error {
		if op == "SaveCart" {
			return errors.New("disk full")
		}
		return nil
	}

	cases := []struct {
		name    string
		call    func() error
		message string
	}{
		{"remove", func() error { _, err := svc.RemoveItem(ctx, "u1", "book"); return err }, "Failed to remove product from cart"},
		{"decrement", func() error { _, err := svc.DecrementItem(ctx, "u1", "book", 1); return err }, "Failed to decrement cart item quantity"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.call()
			if shop.KindOf(err) != shop.KindInternal || shop.MessageOf(err) != c.message {
				t.Fatalf("err = %v", err)
			}
			if got := stock(t, s); got != 3 {
				t.Fatalf("stock = %d, want 3", got)
			}
			saved, err := s.Cart(ctx, "u1")
			if err != nil || len(saved.Items) != 1 || saved.Items[0].Quantity != 2 {
				t.Fatalf("cart = %+v err = %v", saved, err)
			}
		})
	}
}

func TestConcurrentAddsNeverOverReserve(t *testing.T) {
	ctx := context.Background()
	const initial = 10
	svc, s := newService(t, initial)

	var reserved atomic.Int64
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		user := []string{"u1", "u2", "u3", "u4"}[i%4]
		g.Go(func() error {
			_, err := svc.AddItem(ctx, user, "book", 1)
			if err == nil {
				reserved.Add(1)
				return nil
			}
			if errors.Is(err, shop.ErrOutOfStock) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if reserved.Load() != initial {
		t.Fatalf("reserved = %d, want %d", reserved.Load(), initial)
	}
	if got := stock(t, s); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestHalfStockRace(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 3)

	var ok atomic.Int32
	var g errgroup.Group
	for _, u := range []string{"a", "b"} {
		g.Go(func() error {
			_, err := svc.AddItem(ctx, u, "book", 2)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, shop.ErrOutOfStock):
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if ok.Load() != 1 || stock(t, s) != 1 {
		t.Fatalf("successes = %d stock = %d", ok.Load(), stock(t, s))
	}
}

func TestClearReleasesEverything(t *testing.T) {
	ctx := context.Background()
	svc, s := newService(t, 5)
	if _, err := svc.AddItem(ctx, "u1", "book", 4); err != nil {
		t.Fatal(err)
	}
	cv, err := svc.Clear(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Items) != 0 || stock(t, s) != 5 {
		t.Fatalf("items = %d stock = %d", len(cv.Items), stock(t, s))
	}
	if _, err := svc.Clear(ctx, "stranger"); err != nil {
		t.Fatalf("clear without cart: %v", err)
	}
}

func TestGetMissingCartIsEmpty(t *testing.T) {
	svc, _ := newService(t, 1)
	cv, err := svc.Get(context.Background(), "u9")
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Items) != 0 || !cv.TotalPrice.IsZero() {
		t.Fatalf("view = %+v", cv)
	}
}
