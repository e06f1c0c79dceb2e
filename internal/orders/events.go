package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusUpdated = "order.status_updated"
	EventOrderPaid          = "order.paid"
)

const EventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// OrderPayload is the order state after the event.
type OrderPayload struct {
	OrderID        string             `json:"order_id"`
	UserID         string             `json:"user_id"`
	OrderStatus    shop.OrderStatus   `json:"order_status"`
	PaymentStatus  shop.PaymentStatus `json:"payment_status"`
	PreviousStatus shop.OrderStatus   `json:"previous_status,omitempty"`
	TotalPrice     decimal.Decimal    `json:"total_price"`
	Items          []ItemPrice        `json:"items,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Event is a committed state change of one order.
type Event struct {
	Type     string
	Order    shop.Order
	Previous shop.OrderStatus
}

func (e Event) Payload() OrderPayload {
	p := OrderPayload{
		OrderID:        e.Order.ID,
		UserID:         e.Order.UserID,
		OrderStatus:    e.Order.OrderStatus,
		PaymentStatus:  e.Order.PaymentStatus,
		PreviousStatus: e.Previous,
		TotalPrice:     e.Order.TotalPrice,
		UpdatedAt:      e.Order.UpdatedAt,
	}
	for _, it := range e.Order.Items {
		p.Items = append(p.Items, ItemPrice{ProductID: it.ProductID, Qty: it.Quantity, Price: it.Price})
	}
	return p
}

// Emitter publishes events after the transaction that produced them commits.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}
