// Package inventory moves stock between a product's available quantity and
// carts. Every function runs inside the caller's transaction so the stock
// change commits together with the cart or order write that caused it.
package inventory

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

// Reserve takes qty units out of the product's available stock.
// Stock is left untouched when fewer than qty units are available.
func Reserve(ctx context.Context, tx shop.Tx, productID string, qty int) (shop.Product, error) {
	if qty < 1 {
		return shop.Product{}, shop.Errorf(shop.KindValidation, "Invalid quantity")
	}
	p, err := tx.Product(ctx, productID)
	if err != nil {
		return shop.Product{}, err
	}
	if p.Quantity < qty {
		return p, shop.Errorf(shop.KindOutOfStock, "Insufficient quantity in stock")
	}
	p.Quantity -= qty
	if err := tx.SetProductQuantity(ctx, p.ID, p.Quantity); err != nil {
		return shop.Product{}, err
	}
	return p, nil
}

// Release returns qty units to the product's available stock.
func Release(ctx context.Context, tx shop.Tx, productID string, qty int) (shop.Product, error) {
	if qty < 1 {
		return shop.Product{}, shop.Errorf(shop.KindValidation, "Invalid quantity")
	}
	p, err := tx.Product(ctx, productID)
	if err != nil {
		return shop.Product{}, err
	}
	p.Quantity += qty
	if err := tx.SetProductQuantity(ctx, p.ID, p.Quantity); err != nil {
		return shop.Product{}, err
	}
	return p, nil
}

// ReleaseAll returns every line's quantity to stock. All products are read,
// in id order, before the first write. Lines whose product no longer exists
// are skipped.
func ReleaseAll(ctx context.Context, tx shop.Tx, items []shop.CartItem) error {
	totals := map[string]int{}
	var order []string
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if _, seen := totals[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		totals[it.ProductID] += it.Quantity
	}
	// row locks are always taken in the same order
	sort.Strings(order)

	products := make([]shop.Product, 0, len(order))
	for _, id := range order {
		p, err := tx.Product(ctx, id)
		if shop.KindOf(err) == shop.KindNotFound {
			continue
		}
		if err != nil {
			return err
		}
		products = append(products, p)
	}
	for _, p := range products {
		if err := tx.SetProductQuantity(ctx, p.ID, p.Quantity+totals[p.ID]); err != nil {
			return err
		}
	}
	return nil
}
