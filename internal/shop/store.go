package shop

import "context"

// Tx is the view of the store inside one unit of work. Implementations
// backed by document databases require all reads to happen before the
// first write, so callers read everything they need up front.
type Tx interface {
	// Product returns a KindNotFound error when the product does not exist.
	Product(ctx context.Context, id string) (Product, error)
	SetProductQuantity(ctx context.Context, id string, qty int) error

	// LoadCart returns the owner's cart. With create set a missing cart is
	// materialized empty, otherwise a KindNotFound error is returned.
	LoadCart(ctx context.Context, userID string, create bool) (Cart, error)
	SaveCart(ctx context.Context, c Cart) error

	Order(ctx context.Context, id string) (Order, error)
	SaveOrder(ctx context.Context, o Order) error
}

type UnitOfWork func(ctx context.Context, tx Tx) error

// Store commits the writes of a UnitOfWork atomically, or none of them when
// it returns an error. A UnitOfWork may be retried on contention and must
// not keep side effects outside of tx.
type Store interface {
	WithTx(ctx context.Context, fn UnitOfWork) error

	Product(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	PutProduct(ctx context.Context, p Product) error

	Cart(ctx context.Context, userID string) (Cart, error)

	Order(ctx context.Context, id string) (Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	Orders(ctx context.Context) ([]Order, error)
}

// WithTransaction runs fn in a transaction of s. Errors without a kind
// surface as KindInternal carrying message.
func WithTransaction(ctx context.Context, s Store, message string, fn UnitOfWork) error {
	return Internal(message, s.WithTx(ctx, fn))
}
