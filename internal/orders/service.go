package orders

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/catalog"
	"github.com/ariefcatur/go-bookstore-orders/internal/observability"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Idempotency maps a client supplied key to the order it created.
type Idempotency interface {
	Lookup(ctx context.Context, key string) (orderID string, ok bool, err error)
	Remember(ctx context.Context, key, orderID string) error
}

type Options struct {
	Events      Emitter
	Cache       StatusCache
	Idempotency Idempotency
	// StrictTransitions rejects status updates outside the transition table.
	StrictTransitions bool
	Logger            *zap.Logger
}

type Service struct {
	store  shop.Store
	views  *catalog.Resolver
	notify *Notifier
	idem   Idempotency
	cache  StatusCache
	strict bool
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

func NewService(store shop.Store, views *catalog.Resolver, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("orders")
	return &Service{
		store:  store,
		views:  views,
		notify: &Notifier{Events: opts.Events, Cache: opts.Cache, Log: log},
		idem:   opts.Idempotency,
		cache:  opts.Cache,
		strict: opts.StrictTransitions,
		log:    log,
		tracer: otel.Tracer("github.com/ariefcatur/go-bookstore-orders/internal/orders"),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

type CreateInput struct {
	ShippingAddress shop.ShippingAddress
	IdempotencyKey  string
}

func normalize(a shop.ShippingAddress) shop.ShippingAddress {
	return shop.ShippingAddress{
		FullAddress: strings.TrimSpace(a.FullAddress),
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		Phone:       strings.TrimSpace(a.Phone),
	}
}

// Create turns the user's cart into an order priced at current product
// prices and empties the cart. Stock reserved by the cart stays reserved.
//
// A repeated IdempotencyKey returns the order the key first created. Keys are
// recorded after commit, so a duplicate that arrives before the first request
// has recorded its key fails with EmptyCart.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (ov shop.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.create", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { observability.End(span, err) }()

	addr := normalize(in.ShippingAddress)
	if addr.FullAddress == "" || addr.City == "" || addr.Phone == "" {
		return shop.OrderView{}, shop.Errorf(shop.KindValidation, "Please fill all the fields")
	}

	idemKey := ""
	if s.idem != nil && strings.TrimSpace(in.IdempotencyKey) != "" {
		idemKey = userID + ":" + strings.TrimSpace(in.IdempotencyKey)
		if o, ok := s.replay(ctx, userID, idemKey); ok {
			return s.views.Order(ctx, o)
		}
	}

	var created shop.Order
	err = shop.WithTransaction(ctx, s.store, "Failed to create order", func(ctx context.Context, tx shop.Tx) error {
		c, err := tx.LoadCart(ctx, userID, false)
		if shop.KindOf(err) == shop.KindNotFound || (err == nil && len(c.Items) == 0) {
			return shop.Errorf(shop.KindEmptyCart, "Your cart is empty")
		}
		if err != nil {
			return err
		}

		prices, err := lockedPrices(ctx, tx, c.Items)
		if err != nil {
			return err
		}
		items := make([]shop.OrderItem, 0, len(c.Items))
		total := decimal.Zero
		for _, it := range c.Items {
			price := prices[it.ProductID]
			items = append(items, shop.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: price})
			total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}

		now := s.now()
		o := shop.Order{
			ID:              s.newID(),
			UserID:          userID,
			Items:           items,
			ShippingAddress: addr,
			PaymentMethod:   shop.PaymentCashOnDelivery,
			PaymentStatus:   shop.PaymentPending,
			OrderStatus:     shop.OrderProcessing,
			TotalPrice:      total,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		c.Items = nil
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		// a concurrent request with the same key may have taken the cart
		if idemKey != "" && shop.KindOf(err) == shop.KindEmptyCart {
			if o, ok := s.replay(ctx, userID, idemKey); ok {
				return s.views.Order(ctx, o)
			}
		}
		return shop.OrderView{}, err
	}

	if idemKey != "" {
		if err := s.idem.Remember(ctx, idemKey, created.ID); err != nil {
			s.log.Warn("remember idempotency key failed", zap.String("order_id", created.ID), zap.Error(err))
		}
	}
	s.notify.Committed(ctx, Event{Type: EventOrderCreated, Order: created})
	s.log.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", userID),
		zap.String("total", created.TotalPrice.String()))
	return s.views.Order(ctx, created)
}

// lockedPrices reads each distinct product once, in id order, so concurrent
// checkouts lock product rows in the same order.
func lockedPrices(ctx context.Context, tx shop.Tx, lines []shop.CartItem) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(lines))
	prices := make(map[string]decimal.Decimal, len(lines))
	for _, it := range lines {
		if _, ok := prices[it.ProductID]; !ok {
			prices[it.ProductID] = decimal.Zero
			ids = append(ids, it.ProductID)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		p, err := tx.Product(ctx, id)
		if err != nil {
			return nil, err
		}
		prices[id] = p.Price
	}
	return prices, nil
}

// replay returns the order an earlier request with the same key created.
func (s *Service) replay(ctx context.Context, userID, key string) (shop.Order, bool) {
	id, ok, err := s.idem.Lookup(ctx, key)
	if err != nil {
		s.log.Warn("idempotency lookup failed", zap.Error(err))
		return shop.Order{}, false
	}
	if !ok {
		return shop.Order{}, false
	}
	o, err := s.store.Order(ctx, id)
	if err != nil || o.UserID != userID {
		return shop.Order{}, false
	}
	return o, true
}

// Cancel moves a Processing order to Cancelled and merges its items back
// into the owner's cart. Stock is not released: the returned items become
// cart reservations again.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) (ov shop.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { observability.End(span, err) }()

	var cancelled shop.Order
	err = shop.WithTransaction(ctx, s.store, "Failed to cancel order", func(ctx context.Context, tx shop.Tx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return shop.Errorf(shop.KindForbidden, "Not authorized to cancel this order")
		}
		if o.OrderStatus != shop.OrderProcessing {
			return shop.Errorf(shop.KindInvalidState, "Only orders in 'Processing' status can be cancelled")
		}
		c, err := tx.LoadCart(ctx, userID, true)
		if err != nil {
			return err
		}

		now := s.now()
		o.OrderStatus = shop.OrderCancelled
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		for _, it := range o.Items {
			c.Merge(it.ProductID, it.Quantity)
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return shop.OrderView{}, err
	}

	s.notify.Committed(ctx, Event{Type: EventOrderCancelled, Order: cancelled, Previous: shop.OrderProcessing})
	s.log.Info("order cancelled", zap.String("order_id", orderID), zap.String("user_id", userID))
	return s.views.Order(ctx, cancelled)
}

// UpdateStatus sets the fulfilment status of an order.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (ov shop.OrderView, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.update_status", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	))
	defer func() { observability.End(span, err) }()

	next, err := shop.ParseOrderStatus(strings.TrimSpace(status))
	if err != nil {
		return shop.OrderView{}, err
	}

	var updated shop.Order
	var prev shop.OrderStatus
	err = shop.WithTransaction(ctx, s.store, "Failed to update order status", func(ctx context.Context, tx shop.Tx) error {
		o, err := tx.Order(ctx, orderID)
		if err != nil {
			return err
		}
		prev = o.OrderStatus
		if s.strict && !CanTransition(prev, next) {
			return shop.Errorf(shop.KindInvalidState, "Cannot change order status from '%s' to '%s'", prev, next)
		}
		o.OrderStatus = next
		o.UpdatedAt = s.now()
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return shop.OrderView{}, err
	}

	s.notify.Committed(ctx, Event{Type: EventOrderStatusUpdated, Order: updated, Previous: prev})
	s.log.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	return s.views.Order(ctx, updated)
}

// Get returns one of the user's orders.
func (s *Service) Get(ctx context.Context, userID, orderID string) (shop.OrderView, error) {
	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return shop.OrderView{}, err
	}
	return s.views.Order(ctx, o)
}

func (s *Service) owned(ctx context.Context, userID, orderID string) (shop.Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return shop.Order{}, shop.Internal("Failed to load order", err)
	}
	if o.UserID != userID {
		return shop.Order{}, shop.Errorf(shop.KindForbidden, "Not authorized to view this order")
	}
	return o, nil
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]shop.OrderView, error) {
	list, err := s.store.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, shop.Internal("Failed to load orders", err)
	}
	if len(list) == 0 {
		return nil, shop.Errorf(shop.KindNotFound, "No orders found for this user")
	}
	return s.views.Orders(ctx, list)
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]shop.OrderView, error) {
	list, err := s.store.Orders(ctx)
	if err != nil {
		return nil, shop.Internal("Failed to load orders", err)
	}
	if len(list) == 0 {
		return nil, shop.Errorf(shop.KindNotFound, "No orders found")
	}
	return s.views.Orders(ctx, list)
}

// Status answers from the status cache when possible.
func (s *Service) Status(ctx context.Context, userID, orderID string) (StatusSnapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, orderID)
		if err != nil {
			s.log.Warn("status cache get failed", zap.String("order_id", orderID), zap.Error(err))
		}
		if ok {
			if snap.UserID != userID {
				return StatusSnapshot{}, shop.Errorf(shop.KindForbidden, "Not authorized to view this order")
			}
			return snap, nil
		}
	}

	o, err := s.owned(ctx, userID, orderID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	snap := SnapshotOf(o)
	if s.cache != nil {
		if err := s.cache.Put(ctx, snap); err != nil {
			s.log.Warn("status cache put failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return snap, nil
}
