// Package catalog joins carts and orders with live product data.
package catalog

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type ProductReader interface {
	Product(ctx context.Context, id string) (shop.Product, error)
}

type Resolver struct {
	products ProductReader
	limit    int
}

func NewResolver(products ProductReader) *Resolver {
	return &Resolver{products: products, limit: 8}
}

// Views fetches the given products concurrently. Ids that no longer resolve
// are absent from the result.
func (r *Resolver) Views(ctx context.Context, ids []string) (map[string]shop.ProductView, error) {
	out := make(map[string]shop.ProductView, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			p, err := r.products.Product(gctx, id)
			if shop.KindOf(err) == shop.KindNotFound {
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out[id] = p.View()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, shop.Internal("Failed to load products", err)
	}
	return out, nil
}

// Cart prices every line at the current product price.
func (r *Resolver) Cart(ctx context.Context, c shop.Cart) (shop.CartView, error) {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	views, err := r.Views(ctx, ids)
	if err != nil {
		return shop.CartView{}, err
	}

	cv := shop.CartView{UserID: c.UserID, Items: make([]shop.CartLine, 0, len(c.Items)), TotalPrice: decimal.Zero, UpdatedAt: c.UpdatedAt}
	for _, it := range c.Items {
		line := shop.CartLine{ProductID: it.ProductID, Quantity: it.Quantity}
		if v, ok := views[it.ProductID]; ok {
			line.Product = &v
			cv.TotalPrice = cv.TotalPrice.Add(v.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		cv.Items = append(cv.Items, line)
	}
	return cv, nil
}

func (r *Resolver) Orders(ctx context.Context, orders []shop.Order) ([]shop.OrderView, error) {
	var ids []string
	for _, o := range orders {
		for _, it := range o.Items {
			ids = append(ids, it.ProductID)
		}
	}
	views, err := r.Views(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]shop.OrderView, 0, len(orders))
	for _, o := range orders {
		ov := shop.OrderView{
			ID:                o.ID,
			UserID:            o.UserID,
			Items:             make([]shop.OrderLine, 0, len(o.Items)),
			ShippingAddress:   o.ShippingAddress,
			PaymentMethod:     o.PaymentMethod,
			PaymentStatus:     o.PaymentStatus,
			OrderStatus:       o.OrderStatus,
			TotalPrice:        o.TotalPrice,
			CheckoutSessionID: o.CheckoutSessionID,
			CreatedAt:         o.CreatedAt,
			UpdatedAt:         o.UpdatedAt,
		}
		for _, it := range o.Items {
			line := shop.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
			if v, ok := views[it.ProductID]; ok {
				line.Product = &v
			}
			ov.Items = append(ov.Items, line)
		}
		out = append(out, ov)
	}
	return out, nil
}

func (r *Resolver) Order(ctx context.Context, o shop.Order) (shop.OrderView, error) {
	views, err := r.Orders(ctx, []shop.Order{o})
	if err != nil {
		return shop.OrderView{}, err
	}
	return views[0], nil
}
