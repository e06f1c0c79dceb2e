// Package cart implements the per-user cart. Every mutation moves stock
// through the inventory ledger in the same transaction as the cart write.
package cart

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/catalog"
	"github.com/ariefcatur/go-bookstore-orders/internal/inventory"
	"github.com/ariefcatur/go-bookstore-orders/internal/observability"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Service struct {
	store  shop.Store
	views  *catalog.Resolver
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store shop.Store, views *catalog.Resolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		views:  views,
		log:    log.Named("cart"),
		tracer: otel.Tracer("github.com/ariefcatur/go-bookstore-orders/internal/cart"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) start(ctx context.Context, name, userID, productID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("product.id", productID),
	))
}

func validate(userID, productID string, qty int) error {
	if strings.TrimSpace(userID) == "" {
		return shop.Errorf(shop.KindUnauthorized, "unauthorized request")
	}
	if strings.TrimSpace(productID) == "" {
		return shop.Errorf(shop.KindValidation, "productId is Required")
	}
	if qty < 1 {
		return shop.Errorf(shop.KindValidation, "Invalid quantity")
	}
	return nil
}

// AddItem reserves qty units of the product and merges them into the user's
// cart, creating the cart on first use.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.add_item", userID, productID)
	defer func() { observability.End(span, err) }()

	if err := validate(userID, productID, qty); err != nil {
		return shop.CartView{}, err
	}
	var saved shop.Cart
	err = shop.WithTransaction(ctx, s.store, "Failed to add product to cart", func(ctx context.Context, tx shop.Tx) error {
		c, err := tx.LoadCart(ctx, userID, true)
		if err != nil {
			return err
		}
		if _, err := inventory.Reserve(ctx, tx, productID, qty); err != nil {
			return err
		}
		now := s.now()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.Merge(productID, qty)
		c.UpdatedAt = now
		saved = c
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return shop.CartView{}, err
	}
	s.log.Info("cart item added", zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("qty", qty))
	return s.views.Cart(ctx, saved)
}

// RemoveItem drops the product's line and returns its quantity to stock.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.remove_item", userID, productID)
	defer func() { observability.End(span, err) }()

	if err := validate(userID, productID, 1); err != nil {
		return shop.CartView{}, err
	}
	var saved shop.Cart
	err = shop.WithTransaction(ctx, s.store, "Failed to remove product from cart", func(ctx context.Context, tx shop.Tx) error {
		c, line, err := loadLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		if _, err := inventory.Release(ctx, tx, productID, line.Quantity); err != nil {
			return err
		}
		c.Remove(productID)
		c.UpdatedAt = s.now()
		saved = c
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return shop.CartView{}, err
	}
	s.log.Info("cart item removed", zap.String("user_id", userID), zap.String("product_id", productID))
	return s.views.Cart(ctx, saved)
}

// IncrementItem reserves by more units for an existing line.
func (s *Service) IncrementItem(ctx context.Context, userID, productID string, by int) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.increment_item", userID, productID)
	defer func() { observability.End(span, err) }()

	if err := validate(userID, productID, by); err != nil {
		return shop.CartView{}, err
	}
	var saved shop.Cart
	err = shop.WithTransaction(ctx, s.store, "Failed to increment cart item quantity", func(ctx context.Context, tx shop.Tx) error {
		c, _, err := loadLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		if _, err := inventory.Reserve(ctx, tx, productID, by); err != nil {
			return err
		}
		c.Merge(productID, by)
		c.UpdatedAt = s.now()
		saved = c
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return shop.CartView{}, err
	}
	return s.views.Cart(ctx, saved)
}

// DecrementItem releases by units of an existing line. When by reaches the
// line quantity the line is removed and only what it held is released.
func (s *Service) DecrementItem(ctx context.Context, userID, productID string, by int) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.decrement_item", userID, productID)
	defer func() { observability.End(span, err) }()

	if err := validate(userID, productID, by); err != nil {
		return shop.CartView{}, err
	}
	var saved shop.Cart
	err = shop.WithTransaction(ctx, s.store, "Failed to decrement cart item quantity", func(ctx context.Context, tx shop.Tx) error {
		c, line, err := loadLine(ctx, tx, userID, productID)
		if err != nil {
			return err
		}
		release := by
		if by >= line.Quantity {
			release = line.Quantity
			c.Remove(productID)
		} else {
			c.Items[c.Find(productID)].Quantity -= by
		}
		if _, err := inventory.Release(ctx, tx, productID, release); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		saved = c
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return shop.CartView{}, err
	}
	return s.views.Cart(ctx, saved)
}

// Clear empties the cart and returns every line to stock. A user without a
// cart gets an empty view.
func (s *Service) Clear(ctx context.Context, userID string) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.clear", userID, "")
	defer func() { observability.End(span, err) }()

	if strings.TrimSpace(userID) == "" {
		return shop.CartView{}, shop.Errorf(shop.KindUnauthorized, "unauthorized request")
	}
	saved := shop.Cart{UserID: userID}
	err = shop.WithTransaction(ctx, s.store, "Failed to clear cart", func(ctx context.Context, tx shop.Tx) error {
		c, err := tx.LoadCart(ctx, userID, false)
		if shop.KindOf(err) == shop.KindNotFound {
			saved = shop.Cart{UserID: userID}
			return nil
		}
		if err != nil {
			return err
		}
		if err := inventory.ReleaseAll(ctx, tx, c.Items); err != nil {
			return err
		}
		c.Items = nil
		c.UpdatedAt = s.now()
		saved = c
		return tx.SaveCart(ctx, c)
	})
	if err != nil {
		return shop.CartView{}, err
	}
	return s.views.Cart(ctx, saved)
}

// Get returns the cart priced at current product prices.
func (s *Service) Get(ctx context.Context, userID string) (cv shop.CartView, err error) {
	ctx, span := s.start(ctx, "cart.get", userID, "")
	defer func() { observability.End(span, err) }()

	c, err := s.store.Cart(ctx, userID)
	if shop.KindOf(err) == shop.KindNotFound {
		c, err = shop.Cart{UserID: userID}, nil
	}
	if err != nil {
		return shop.CartView{}, shop.Internal("Failed to load cart", err)
	}
	return s.views.Cart(ctx, c)
}

func loadLine(ctx context.Context, tx shop.Tx, userID, productID string) (shop.Cart, shop.CartItem, error) {
	c, err := tx.LoadCart(ctx, userID, false)
	if err != nil {
		return shop.Cart{}, shop.CartItem{}, err
	}
	i := c.Find(productID)
	if i < 0 {
		return shop.Cart{}, shop.CartItem{}, shop.Errorf(shop.KindNotFound, "Product not found in cart")
	}
	return c, c.Items[i], nil
}
