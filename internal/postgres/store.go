package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Store keeps carts and orders as JSONB documents next to a relational
// products table. Transactions lock touched rows with SELECT ... FOR UPDATE.
type Store struct{ DB *pgxpool.Pool }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schema)
	return err
}

const (
	txAttempts = 3

	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// WithTx runs fn in a transaction and runs it again when Postgres aborts the
// transaction for a deadlock or a serialization failure.
func (s *Store) WithTx(ctx context.Context, fn shop.UnitOfWork) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		if err = s.runTx(ctx, fn); !retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * 25 * time.Millisecond):
		}
	}
	return err
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeDeadlockDetected || pgErr.Code == codeSerializationFailure
}

func (s *Store) runTx(ctx context.Context, fn shop.UnitOfWork) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const productCols = `id, title, thumbnail, price::text, quantity, created_at, updated_at`

func scanProduct(row pgx.Row) (shop.Product, error) {
	var (
		p     shop.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Thumbnail, &price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Product{}, shop.Errorf(shop.KindNotFound, "Product not found")
		}
		return shop.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return shop.Product{}, fmt.Errorf("product %s price: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

func getProduct(ctx context.Context, q querier, id string, lock bool) (shop.Product, error) {
	sql := `SELECT ` + productCols + ` FROM products WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	return scanProduct(q.QueryRow(ctx, sql, id))
}

func (s *Store) Product(ctx context.Context, id string) (shop.Product, error) {
	return getProduct(ctx, s.DB, id, false)
}

func (s *Store) ListProducts(ctx context.Context) ([]shop.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) PutProduct(ctx context.Context, p shop.Product) error {
	now := time.Now().UTC()
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, title, thumbnail, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			thumbnail = EXCLUDED.thumbnail,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`,
		p.ID, p.Title, p.Thumbnail, p.Price.String(), p.Quantity, now)
	return err
}

func scanCart(row pgx.Row) (shop.Cart, error) {
	var (
		c     shop.Cart
		items []byte
	)
	if err := row.Scan(&c.UserID, &items, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Cart{}, shop.Errorf(shop.KindNotFound, "Cart not found")
		}
		return shop.Cart{}, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return shop.Cart{}, fmt.Errorf("cart %s items: %w", c.UserID, err)
	}
	return c, nil
}

func (s *Store) Cart(ctx context.Context, userID string) (shop.Cart, error) {
	return scanCart(s.DB.QueryRow(ctx, `SELECT user_id, items, created_at, updated_at FROM carts WHERE user_id=$1`, userID))
}

const orderCols = `id, user_id, items, shipping_address, payment_method, payment_status, order_status,
	total_price::text, checkout_session_id, created_at, updated_at`

func scanOrder(row pgx.Row) (shop.Order, error) {
	var (
		o           shop.Order
		items, addr []byte
		total       string
	)
	err := row.Scan(&o.ID, &o.UserID, &items, &addr, &o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus,
		&total, &o.CheckoutSessionID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shop.Order{}, shop.Errorf(shop.KindNotFound, "Order not found")
		}
		return shop.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return shop.Order{}, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return shop.Order{}, fmt.Errorf("order %s address: %w", o.ID, err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return shop.Order{}, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	return o, nil
}

func (s *Store) Order(ctx context.Context, id string) (shop.Order, error) {
	return scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]shop.Order, error) {
	return queryOrders(ctx, s.DB, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *Store) Orders(ctx context.Context) ([]shop.Order, error) {
	return queryOrders(ctx, s.DB, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC`)
}

func queryOrders(ctx context.Context, q querier, sql string, args ...any) ([]shop.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
