package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/go-bookstore-orders/internal/kafka"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type capture struct {
	key, value []byte
	headers    []kafkago.Header
}

func (c *capture) Publish(key, value []byte, headers ...kafkago.Header) error {
	c.key, c.value, c.headers = key, value, headers
	return nil
}

func TestEventPublisherEnvelope(t *testing.T) {
	c := &capture{}
	p := NewEventPublisher(c, "order-api")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := shop.Order{
		ID:            "o1",
		UserID:        "u1",
		OrderStatus:   shop.OrderProcessing,
		PaymentStatus: shop.PaymentPaid,
		TotalPrice:    decimal.NewFromInt(20),
		Items:         []shop.OrderItem{{ProductID: "a", Quantity: 2, Price: decimal.NewFromInt(10)}},
		UpdatedAt:     now,
	}
	if err := p.Emit(context.Background(), Event{Type: EventOrderPaid, Order: o}); err != nil {
		t.Fatal(err)
	}

	if string(c.key) != "o1" {
		t.Fatalf("key = %q", c.key)
	}
	if got := kafkax.HeaderValue(kafkago.Message{Headers: c.headers}, "x-event-type"); got != EventOrderPaid {
		t.Fatalf("x-event-type = %q", got)
	}

	var env Envelope
	if err := json.Unmarshal(c.value, &env); err != nil {
		t.Fatal(err)
	}
	if env.EventType != EventOrderPaid || env.CorrelationID != "o1" || env.Producer != "order-api" || env.EventID == "" {
		t.Fatalf("envelope = %+v", env)
	}
	pl, err := kafkax.UnwrapPayload[OrderPayload](env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if pl.PaymentStatus != shop.PaymentPaid || !pl.UpdatedAt.Equal(now) || len(pl.Items) != 1 {
		t.Fatalf("payload = %+v", pl)
	}
}
