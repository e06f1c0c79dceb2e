package postgres

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/jackc/pgx/v5"
)

type txStore struct{ tx pgx.Tx }

func (t *txStore) Product(ctx context.Context, id string) (shop.Product, error) {
	return getProduct(ctx, t.tx, id, true)
}

func (t *txStore) SetProductQuantity(ctx context.Context, id string, qty int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=now() WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return shop.Errorf(shop.KindNotFound, "Product not found")
	}
	return nil
}

func (t *txStore) LoadCart(ctx context.Context, userID string, create bool) (shop.Cart, error) {
	if create {
		// materialize the row so concurrent first adds serialize on its lock
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO carts(user_id, items) VALUES ($1, '[]')
			ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
			return shop.Cart{}, err
		}
	}
	return scanCart(t.tx.QueryRow(ctx,
		`SELECT user_id, items, created_at, updated_at FROM carts WHERE user_id=$1 FOR UPDATE`, userID))
}

func (t *txStore) SaveCart(ctx context.Context, c shop.Cart) error {
	items := c.Items
	if items == nil {
		items = []shop.CartItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO carts(user_id, items, created_at, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`,
		c.UserID, b, c.CreatedAt, c.UpdatedAt)
	return err
}

func (t *txStore) Order(ctx context.Context, id string) (shop.Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
}

func (t *txStore) SaveOrder(ctx context.Context, o shop.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, items, shipping_address, payment_method, payment_status, order_status,
			total_price, checkout_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			items = EXCLUDED.items,
			shipping_address = EXCLUDED.shipping_address,
			payment_method = EXCLUDED.payment_method,
			payment_status = EXCLUDED.payment_status,
			order_status = EXCLUDED.order_status,
			total_price = EXCLUDED.total_price,
			checkout_session_id = EXCLUDED.checkout_session_id,
			updated_at = EXCLUDED.updated_at`,
		o.ID, o.UserID, items, addr, string(o.PaymentMethod), string(o.PaymentStatus), string(o.OrderStatus),
		o.TotalPrice.String(), o.CheckoutSessionID, o.CreatedAt, o.UpdatedAt)
	return err
}
