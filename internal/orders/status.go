package orders

import "github.com/ariefcatur/go-bookstore-orders/internal/shop"

var validNext = map[shop.OrderStatus]map[shop.OrderStatus]bool{
	shop.OrderProcessing: {shop.OrderShipped: true, shop.OrderCancelled: true},
	shop.OrderShipped:    {shop.OrderDelivered: true},
	shop.OrderDelivered:  {},
	shop.OrderCancelled:  {},
}

func CanTransition(from, to shop.OrderStatus) bool {
	return validNext[from][to]
}
