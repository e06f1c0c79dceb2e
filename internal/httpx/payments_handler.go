package httpx

import (
	"context"

	"github.com/ariefcatur/go-bookstore-orders/internal/payments"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

type paymentSessionData struct {
	URL     string           `json:"url"`
	Session payments.Session `json:"session"`
}

func (s *server) createPayment(ctx context.Context, req request) (response, error) {
	sess, err := s.Payments.CreateCheckoutSession(ctx, req.Principal.UserID, req.Param("orderId"))
	if err != nil {
		return response{}, err
	}
	return ok(paymentSessionData{URL: sess.URL, Session: sess}, "Payment session created successfully"), nil
}

// webhook verifies the raw body as received; it is never re-encoded.
func (s *server) webhook(ctx context.Context, req request) (response, error) {
	out, err := s.Payments.HandleWebhook(ctx, req.Body, req.Header.Get("Stripe-Signature"))
	if err != nil {
		if shop.KindOf(err) == shop.KindSignatureVerificationFailed {
			s.Metrics.Webhook("rejected")
		} else {
			s.Metrics.Webhook("failed")
		}
		return response{}, err
	}
	s.Metrics.Webhook(string(out))
	return ok(true, "Webhook received and processed successfully"), nil
}
