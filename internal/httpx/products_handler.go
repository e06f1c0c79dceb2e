package httpx

import (
	"context"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

func (s *server) listProducts(ctx context.Context, _ request) (response, error) {
	ps, err := s.Products.ListProducts(ctx)
	if err != nil {
		return response{}, shop.Internal("Failed to load products", err)
	}
	views := make([]shop.ProductView, 0, len(ps))
	for _, p := range ps {
		views = append(views, p.View())
	}
	return ok(views, "Products retrieved successfully"), nil
}
