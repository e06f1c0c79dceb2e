package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

type memDedup map[string]bool

func (m memDedup) Seen(_ context.Context, id string) (bool, error) { return m[id], nil }
func (m memDedup) Mark(_ context.Context, id string) error        { m[id] = true; return nil }

func envelope(t *testing.T, id, typ string, pl OrderPayload) Envelope {
	t.Helper()
	b, err := json.Marshal(pl)
	if err != nil {
		t.Fatal(err)
	}
	return Envelope{EventID: id, EventType: typ, EventVersion: EventVersion, Payload: b}
}

func TestProjectorKeepsNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	cache := &memCache{}
	p := &Projector{Cache: cache, Dedup: memDedup{}}
	t0 := time.Now().UTC()

	paid := envelope(t, "e2", EventOrderPaid, OrderPayload{OrderID: "o1", UserID: "u1", OrderStatus: shop.OrderProcessing, PaymentStatus: shop.PaymentPaid, UpdatedAt: t0.Add(time.Second)})
	created := envelope(t, "e1", EventOrderCreated, OrderPayload{OrderID: "o1", UserID: "u1", OrderStatus: shop.OrderProcessing, PaymentStatus: shop.PaymentPending, UpdatedAt: t0})

	for _, env := range []Envelope{paid, created, paid} {
		if err := p.Apply(ctx, env); err != nil {
			t.Fatal(err)
		}
	}
	if got := cache.snaps["o1"].PaymentStatus; got != shop.PaymentPaid {
		t.Fatalf("payment status = %s, want Paid", got)
	}
}

func TestProjectorSkipsForeignEvents(t *testing.T) {
	cache := &memCache{}
	p := &Projector{Cache: cache}
	if err := p.Apply(context.Background(), Envelope{EventID: "x", EventType: "user.created", EventVersion: 1}); err != nil {
		t.Fatal(err)
	}
	if len(cache.snaps) != 0 {
		t.Fatalf("cache = %+v", cache.snaps)
	}
}
