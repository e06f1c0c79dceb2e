package redisx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

func TestNewer(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cached, _ := json.Marshal(orders.StatusSnapshot{OrderID: "o1", PaymentStatus: shop.PaymentPaid, UpdatedAt: t0})

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"older", t0.Add(-time.Second), false},
		{"same instant", t0, true},
		{"later", t0.Add(time.Second), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := newer(cached, orders.StatusSnapshot{OrderID: "o1", UpdatedAt: tc.at}); got != tc.want {
				t.Fatalf("newer = %v, want %v", got, tc.want)
			}
		})
	}
	if !newer([]byte("garbage"), orders.StatusSnapshot{}) {
		t.Fatal("unreadable cache entry should be replaced")
	}
}

func TestKeys(t *testing.T) {
	d := NewDeduper(nil, "payments-webhook")
	if got := d.key("evt_1"); got != "dedup:payments-webhook:evt_1" {
		t.Fatalf("key = %q", got)
	}
	if got := statusKey("o1"); got != "order_status:o1" {
		t.Fatalf("key = %q", got)
	}
}
