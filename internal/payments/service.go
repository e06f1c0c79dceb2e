// Package payments creates checkout sessions with the payment provider and
// reconciles order payment state from the provider's webhook.
package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/observability"
	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const EventCheckoutSessionCompleted = "checkout.session.completed"

type CheckoutLine struct {
	Name       string
	Image      string
	UnitAmount int64 // minor units
	Quantity   int64
}

type CheckoutRequest struct {
	OrderID    string
	Currency   string
	Lines      []CheckoutLine
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutGateway interface {
	CreateSession(ctx context.Context, req CheckoutRequest) (Session, error)
}

// Event is a verified provider notification.
type Event struct {
	ID      string
	Type    string
	OrderID string // from checkout session metadata, empty for other types
}

// EventVerifier authenticates a raw webhook body against its signature
// header. It returns KindSignatureVerificationFailed for forged or stale
// payloads and KindInternal when no signing secret is configured.
type EventVerifier interface {
	Verify(payload []byte, signature string) (Event, error)
}

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeAlreadyPaid  Outcome = "already_paid"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeOrderMissing Outcome = "order_missing"
)

type Config struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type Service struct {
	store    shop.Store
	gateway  CheckoutGateway
	verifier EventVerifier
	dedup    orders.Deduper
	notify   *orders.Notifier
	cfg      Config
	log      *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Options struct {
	Dedup  orders.Deduper
	Events orders.Emitter
	Cache  orders.StatusCache
	Logger *zap.Logger
}

func NewService(store shop.Store, gateway CheckoutGateway, verifier EventVerifier, cfg Config, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("payments")
	return &Service{
		store:    store,
		gateway:  gateway,
		verifier: verifier,
		dedup:    opts.Dedup,
		notify:   &orders.Notifier{Events: opts.Events, Cache: opts.Cache, Log: log},
		cfg:      cfg,
		log:      log,
		tracer:   otel.Tracer("github.com/ariefcatur/go-bookstore-orders/internal/payments"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UnitAmount converts a price to minor units, rounding half away from zero.
func UnitAmount(price decimal.Decimal) int64 {
	return price.Shift(2).Round(0).IntPart()
}

// CreateCheckoutSession opens a provider checkout for one of the user's
// unpaid orders and records the session id on the order.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, orderID string) (sess Session, err error) {
	ctx, span := s.tracer.Start(ctx, "payments.create_checkout_session", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { observability.End(span, err) }()

	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return Session{}, shop.Internal("Failed to load order", err)
	}
	if o.UserID != userID {
		return Session{}, shop.Errorf(shop.KindForbidden, "Not authorized to pay for this order")
	}
	if o.PaymentStatus == shop.PaymentPaid {
		return Session{}, shop.Errorf(shop.KindInvalidState, "Order is already paid")
	}
	if o.OrderStatus == shop.OrderCancelled {
		return Session{}, shop.Errorf(shop.KindInvalidState, "Cancelled orders cannot be paid")
	}

	req := CheckoutRequest{
		OrderID:    o.ID,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	}
	for _, it := range o.Items {
		line := CheckoutLine{
			Name:       "Product " + it.ProductID,
			UnitAmount: UnitAmount(it.Price),
			Quantity:   int64(it.Quantity),
		}
		if p, err := s.store.Product(ctx, it.ProductID); err == nil {
			line.Name, line.Image = p.Title, p.Thumbnail
		}
		req.Lines = append(req.Lines, line)
	}

	sess, err = s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.log.Error("create checkout session failed", zap.String("order_id", o.ID), zap.Error(err))
		return Session{}, shop.Wrap(shop.KindInternal, "Error creating payment session", err)
	}

	err = shop.WithTransaction(ctx, s.store, "Failed to record payment session", func(ctx context.Context, tx shop.Tx) error {
		cur, err := tx.Order(ctx, o.ID)
		if err != nil {
			return err
		}
		cur.CheckoutSessionID = sess.ID
		cur.UpdatedAt = s.now()
		return tx.SaveOrder(ctx, cur)
	})
	if err != nil {
		return Session{}, err
	}
	s.log.Info("checkout session created", zap.String("order_id", o.ID), zap.String("session_id", sess.ID))
	return sess, nil
}

// HandleWebhook verifies and applies one provider notification. A nil error
// means the notification may be acknowledged; an internal error asks the
// provider to retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (out Outcome, err error) {
	ctx, span := s.tracer.Start(ctx, "payments.webhook")
	defer func() {
		span.SetAttributes(attribute.String("webhook.outcome", string(out)))
		observability.End(span, err)
	}()

	ev, err := s.verifier.Verify(payload, signature)
	if err != nil {
		if shop.KindOf(err) == shop.KindInternal {
			s.log.Error("webhook verifier unavailable", zap.Error(err))
			return "", err
		}
		s.log.Warn("webhook signature rejected", zap.Error(err))
		return "", err
	}
	span.SetAttributes(attribute.String("webhook.event_id", ev.ID), attribute.String("webhook.event_type", ev.Type))
	log := s.log.With(zap.String("event_id", ev.ID), zap.String("event_type", ev.Type))

	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, ev.ID)
		if err != nil {
			log.Warn("dedup lookup failed", zap.Error(err))
		} else if seen {
			log.Info("duplicate webhook event")
			return OutcomeDuplicate, nil
		}
	}

	switch ev.Type {
	case EventCheckoutSessionCompleted:
		out, err = s.markPaid(ctx, log, ev.OrderID)
		if err != nil {
			return "", err
		}
	default:
		log.Info("unhandled webhook event type")
		out = OutcomeIgnored
	}

	if s.dedup != nil {
		if err := s.dedup.Mark(ctx, ev.ID); err != nil {
			log.Warn("dedup mark failed", zap.Error(err))
		}
	}
	return out, nil
}

// markPaid moves an order from Pending to Paid at most once.
func (s *Service) markPaid(ctx context.Context, log *zap.Logger, orderID string) (Outcome, error) {
	if orderID == "" {
		log.Warn("checkout session without order_id metadata")
		return OutcomeIgnored, nil
	}
	log = log.With(zap.String("order_id", orderID))

	var (
		paid    shop.Order
		outcome Outcome
	)
	err := shop.WithTransaction(ctx, s.store, "Failed to update payment status", func(ctx context.Context, tx shop.Tx) error {
		o, err := tx.Order(ctx, orderID)
		if shop.KindOf(err) == shop.KindNotFound {
			outcome = OutcomeOrderMissing
			return nil
		}
		if err != nil {
			return err
		}
		if o.PaymentStatus == shop.PaymentPaid {
			outcome = OutcomeAlreadyPaid
			return nil
		}
		o.PaymentStatus = shop.PaymentPaid
		o.UpdatedAt = s.now()
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		paid, outcome = o, OutcomeProcessed
		return nil
	})
	if err != nil {
		log.Error("mark order paid failed", zap.Error(err))
		return "", err
	}

	switch outcome {
	case OutcomeOrderMissing:
		log.Warn("webhook for unknown order")
	case OutcomeAlreadyPaid:
		log.Info("order already paid")
	case OutcomeProcessed:
		s.notify.Committed(ctx, orders.Event{Type: orders.EventOrderPaid, Order: paid, Previous: paid.OrderStatus})
		log.Info("order marked paid", zap.String("total", paid.TotalPrice.String()))
	default:
		return "", fmt.Errorf("payments: unexpected outcome %q", outcome)
	}
	return outcome, nil
}
