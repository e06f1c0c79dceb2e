package httpx

import (
	"context"
	"net/http"
)

type quantityBody struct {
	Quantity    *int `json:"quantity"`
	IncrementBy *int `json:"incrementBy"`
	DecrementBy *int `json:"decrementBy"`
}

func orOne(n *int) int {
	if n == nil {
		return 1
	}
	return *n
}

func (s *server) addToCart(ctx context.Context, req request) (response, error) {
	var body quantityBody
	if err := req.decode(&body); err != nil {
		return response{}, err
	}
	cv, err := s.Carts.AddItem(ctx, req.Principal.UserID, req.Param("productId"), orOne(body.Quantity))
	if err != nil {
		return response{}, err
	}
	return response{Status: http.StatusCreated, Data: cv, Message: "Product added to cart"}, nil
}

func (s *server) removeFromCart(ctx context.Context, req request) (response, error) {
	cv, err := s.Carts.RemoveItem(ctx, req.Principal.UserID, req.Param("productId"))
	if err != nil {
		return response{}, err
	}
	return ok(cv, "Product removed from cart"), nil
}

func (s *server) incrementInCart(ctx context.Context, req request) (response, error) {
	var body quantityBody
	if err := req.decode(&body); err != nil {
		return response{}, err
	}
	cv, err := s.Carts.IncrementItem(ctx, req.Principal.UserID, req.Param("productId"), orOne(body.IncrementBy))
	if err != nil {
		return response{}, err
	}
	return ok(cv, "Cart item quantity incremented successfully"), nil
}

func (s *server) decrementInCart(ctx context.Context, req request) (response, error) {
	var body quantityBody
	if err := req.decode(&body); err != nil {
		return response{}, err
	}
	cv, err := s.Carts.DecrementItem(ctx, req.Principal.UserID, req.Param("productId"), orOne(body.DecrementBy))
	if err != nil {
		return response{}, err
	}
	return ok(cv, "Cart item quantity decremented successfully"), nil
}

func (s *server) clearCart(ctx context.Context, req request) (response, error) {
	cv, err := s.Carts.Clear(ctx, req.Principal.UserID)
	if err != nil {
		return response{}, err
	}
	return ok(cv, "Cart cleared successfully"), nil
}

func (s *server) getCart(ctx context.Context, req request) (response, error) {
	cv, err := s.Carts.Get(ctx, req.Principal.UserID)
	if err != nil {
		return response{}, err
	}
	return ok(cv, "Cart retrieved successfully"), nil
}
