package httpx

import (
	"context"

	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
)

type createOrderBody struct {
	FullAddress string `json:"fullAddress"`
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	Phone       string `json:"phone"`
}

type updateStatusBody struct {
	OrderStatus string `json:"orderStatus"`
}

// createOrder honours an optional Idempotency-Key header. A retry with the
// same key returns the original order; a duplicate sent while the first
// request is still in flight may get 400 "Your cart is empty".
func (s *server) createOrder(ctx context.Context, req request) (response, error) {
	var body createOrderBody
	if err := req.decode(&body); err != nil {
		return response{}, err
	}
	ov, err := s.Orders.Create(ctx, req.Principal.UserID, orders.CreateInput{
		ShippingAddress: shop.ShippingAddress(body),
		IdempotencyKey:  req.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return response{}, err
	}
	return ok(ov, "Order created successfully"), nil
}

func (s *server) getOrder(ctx context.Context, req request) (response, error) {
	ov, err := s.Orders.Get(ctx, req.Principal.UserID, req.Param("orderId"))
	if err != nil {
		return response{}, err
	}
	return ok(ov, "Order retrieved successfully"), nil
}

func (s *server) getOrderStatus(ctx context.Context, req request) (response, error) {
	snap, err := s.Orders.Status(ctx, req.Principal.UserID, req.Param("orderId"))
	if err != nil {
		return response{}, err
	}
	return ok(snap, "Order status retrieved successfully"), nil
}

func (s *server) currentUserOrders(ctx context.Context, req request) (response, error) {
	list, err := s.Orders.ListForUser(ctx, req.Principal.UserID)
	if err != nil {
		return response{}, err
	}
	return ok(list, "User orders retrieved successfully"), nil
}

func (s *server) allOrders(ctx context.Context, _ request) (response, error) {
	list, err := s.Orders.ListAll(ctx)
	if err != nil {
		return response{}, err
	}
	return ok(list, "All orders retrieved successfully"), nil
}

func (s *server) updateOrderStatus(ctx context.Context, req request) (response, error) {
	var body updateStatusBody
	if err := req.decode(&body); err != nil {
		return response{}, err
	}
	ov, err := s.Orders.UpdateStatus(ctx, req.Param("orderId"), body.OrderStatus)
	if err != nil {
		return response{}, err
	}
	return ok(ov, "Order status updated successfully"), nil
}

func (s *server) cancelOrder(ctx context.Context, req request) (response, error) {
	ov, err := s.Orders.Cancel(ctx, req.Principal.UserID, req.Param("orderId"))
	if err != nil {
		return response{}, err
	}
	return ok(ov, "Order cancelled successfully"), nil
}
