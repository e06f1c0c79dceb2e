package payments

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testSecret = "whsec_test_secret"

func signed(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

func completedPayload(eventID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": %q,
  "object": "event",
  "api_version": "2020-08-27",
  "type": "checkout.session.completed",
  "data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {"order_id": %q}}}
}`, eventID, orderID))
}

func TestStripeVerifier(t *testing.T) {
	payload := completedPayload("evt_1", "o1")

	t.Run("valid signature", func(t *testing.T) {
		ev, err := NewStripeVerifier(testSecret).Verify(payload, signed(t, payload, testSecret))
		if err != nil {
			t.Fatal(err)
		}
		if ev.ID != "evt_1" || ev.Type != EventCheckoutSessionCompleted || ev.OrderID != "o1" {
			t.Fatalf("event = %+v", ev)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewStripeVerifier(testSecret).Verify(payload, signed(t, payload, "whsec_other"))
		if !errors.Is(err, shop.ErrSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		header := signed(t, payload, testSecret)
		_, err := NewStripeVerifier(testSecret).Verify(completedPayload("evt_1", "o2"), header)
		if !errors.Is(err, shop.ErrSignature) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := NewStripeVerifier("").Verify(payload, "t=1,v1=00")
		if shop.KindOf(err) != shop.KindInternal || err == nil {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestBuildSessionParams(t *testing.T) {
	p := buildSessionParams(CheckoutRequest{
		OrderID:    "o1",
		Currency:   "pkr",
		SuccessURL: "http://localhost:5173/payment-success",
		CancelURL:  "http://localhost:5173/payment-cancel",
		Lines: []CheckoutLine{
			{Name: "Go in Action", Image: "http://img/1.png", UnitAmount: 1050, Quantity: 2},
			{Name: "Pen", UnitAmount: 99, Quantity: 1},
		},
	})

	if p.Metadata["order_id"] != "o1" || *p.Mode != "payment" || *p.PaymentMethodTypes[0] != "card" {
		t.Fatalf("params = %+v", p)
	}
	if len(p.LineItems) != 2 {
		t.Fatalf("line items = %d", len(p.LineItems))
	}
	first := p.LineItems[0]
	if *first.PriceData.Currency != "pkr" || *first.PriceData.UnitAmount != 1050 || *first.Quantity != 2 {
		t.Fatalf("first line = %+v", first.PriceData)
	}
	if len(first.PriceData.ProductData.Images) != 1 || p.LineItems[1].PriceData.ProductData.Images != nil {
		t.Fatal("images not mapped")
	}
	if *p.SuccessURL != "http://localhost:5173/payment-success" {
		t.Fatalf("success url = %s", *p.SuccessURL)
	}
}
