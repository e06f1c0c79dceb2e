package payments

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeGateway creates hosted card checkout sessions.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, nil)}
}

func (g *StripeGateway) CreateSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	params := buildSessionParams(req)
	params.Context = ctx
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

func buildSessionParams(req CheckoutRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(req.OrderID),
	}
	for _, l := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(l.Name)}
		if l.Image != "" {
			product.Images = stripe.StringSlice([]string{l.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(l.UnitAmount),
			},
			Quantity: stripe.Int64(l.Quantity),
		})
	}
	params.AddMetadata("order_id", req.OrderID)
	return params
}

// StripeVerifier checks the Stripe-Signature header over the raw body.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(webhookSecret string) *StripeVerifier {
	return &StripeVerifier{secret: webhookSecret}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) (Event, error) {
	if v.secret == "" {
		return Event{}, shop.Errorf(shop.KindInternal, "Webhook secret not set")
	}
	se, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, shop.Wrap(shop.KindSignatureVerificationFailed, "Webhook Error: "+err.Error(), err)
	}

	ev := Event{ID: se.ID, Type: string(se.Type)}
	if se.Type == stripe.EventTypeCheckoutSessionCompleted && se.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(se.Data.Raw, &cs); err != nil {
			return Event{}, shop.Wrap(shop.KindSignatureVerificationFailed, "Webhook Error: malformed checkout session", err)
		}
		ev.OrderID = cs.Metadata["order_id"]
	}
	return ev, nil
}
