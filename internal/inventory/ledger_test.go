package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-bookstore-orders/internal/memstore"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
)

func seeded(t *testing.T, stock int) *memstore.Store {
	t.Helper()
	s := memstore.New()
	if err := s.PutProduct(context.Background(), shop.Product{ID: "book", Title: "Book", Price: decimal.NewFromInt(10), Quantity: stock}); err != nil {
		t.Fatal(err)
	}
	return s
}

func stockOf(t *testing.T, s *memstore.Store, id string) int {
	t.Helper()
	p, err := s.Product(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return p.Quantity
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("exact stock drains to zero", func(t *testing.T) {
		s := seeded(t, 4)
		err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
			_, err := Reserve(ctx, tx, "book", 4)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if got := stockOf(t, s, "book"); got != 0 {
			t.Fatalf("stock = %d, want 0", got)
		}
	})

	t.Run("one more than stock is rejected", func(t *testing.T) {
		s := seeded(t, 4)
		err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
			_, err := Reserve(ctx, tx, "book", 5)
			return err
		})
		if !errors.Is(err, shop.ErrOutOfStock) {
			t.Fatalf("err = %v", err)
		}
		if got := stockOf(t, s, "book"); got != 4 {
			t.Fatalf("stock = %d, want 4", got)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		s := seeded(t, 4)
		err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
			_, err := Reserve(ctx, tx, "ghost", 1)
			return err
		})
		if !errors.Is(err, shop.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("non positive quantity", func(t *testing.T) {
		s := seeded(t, 4)
		err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
			_, err := Reserve(ctx, tx, "book", 0)
			return err
		})
		if !errors.Is(err, shop.ErrValidation) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestReleaseRestoresStock(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, 4)
	err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		if _, err := Reserve(ctx, tx, "book", 3); err != nil {
			return err
		}
		_, err := Release(ctx, tx, "book", 3)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := stockOf(t, s, "book"); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}
}

func TestReleaseAll(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, 1)
	_ = s.PutProduct(ctx, shop.Product{ID: "pen", Quantity: 0})

	err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		return ReleaseAll(ctx, tx, []shop.CartItem{
			{ProductID: "book", Quantity: 2},
			{ProductID: "pen", Quantity: 5},
			{ProductID: "gone", Quantity: 1},
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := stockOf(t, s, "book"); got != 3 {
		t.Fatalf("book = %d, want 3", got)
	}
	if got := stockOf(t, s, "pen"); got != 5 {
		t.Fatalf("pen = %d, want 5", got)
	}
}

type recordingTx struct {
	shop.Tx
	reads *[]string
}

func (r recordingTx) Product(ctx context.Context, id string) (shop.Product, error) {
	*r.reads = append(*r.reads, id)
	return r.Tx.Product(ctx, id)
}

func TestReleaseAllLocksInIDOrder(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, 1)
	for _, id := range []string{"zine", "atlas"} {
		if err := s.PutProduct(ctx, shop.Product{ID: id, Title: id, Price: decimal.NewFromInt(1), Quantity: 1}); err != nil {
			t.Fatal(err)
		}
	}

	var reads []string
	err := s.WithTx(ctx, func(ctx context.Context, tx shop.Tx) error {
		return ReleaseAll(ctx, recordingTx{Tx: tx, reads: &reads}, []shop.CartItem{
			{ProductID: "zine", Quantity: 1},
			{ProductID: "book", Quantity: 2},
			{ProductID: "atlas", Quantity: 1},
			{ProductID: "zine", Quantity: 1},
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reads) != 3 || reads[0] != "atlas" || reads[1] != "book" || reads[2] != "zine" {
		t.Fatalf("reads = %v", reads)
	}
	if got := stockOf(t, s, "zine"); got != 3 {
		t.Fatalf("zine stock = %d, want 3", got)
	}
}
