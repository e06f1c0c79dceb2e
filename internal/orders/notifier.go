package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"go.uber.org/zap"
)

// StatusSnapshot is the cached view of an order's lifecycle state.
type StatusSnapshot struct {
	OrderID       string             `json:"orderId"`
	UserID        string             `json:"userId"`
	OrderStatus   shop.OrderStatus   `json:"orderStatus"`
	PaymentStatus shop.PaymentStatus `json:"paymentStatus"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func SnapshotOf(o shop.Order) StatusSnapshot {
	return StatusSnapshot{
		OrderID:       o.ID,
		UserID:        o.UserID,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		UpdatedAt:     o.UpdatedAt,
	}
}

// StatusCache never replaces a snapshot with an older one.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (StatusSnapshot, bool, error)
	Put(ctx context.Context, s StatusSnapshot) error
}

// Notifier fans a committed order change out to the status cache and the
// event stream. Both are optional and failures are only logged: the store
// stays the source of truth.
type Notifier struct {
	Events Emitter
	Cache  StatusCache
	Log    *zap.Logger
}

func (n *Notifier) Committed(ctx context.Context, ev Event) {
	log := n.Log
	if log == nil {
		log = zap.NewNop()
	}
	if n.Cache != nil {
		if err := n.Cache.Put(ctx, SnapshotOf(ev.Order)); err != nil {
			log.Warn("status cache put failed", zap.String("order_id", ev.Order.ID), zap.Error(err))
		}
	}
	if n.Events != nil {
		if err := n.Events.Emit(ctx, ev); err != nil {
			log.Error("emit order event failed",
				zap.String("order_id", ev.Order.ID),
				zap.String("event_type", ev.Type),
				zap.Error(err))
		}
	}
}
