package orders

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-bookstore-orders/internal/kafka"
	"go.uber.org/zap"
)

// Deduper remembers processed event ids.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

// Projector keeps the status cache in step with the order event stream.
type Projector struct {
	Cache StatusCache
	Dedup Deduper
	Log   *zap.Logger
}

func (p *Projector) Apply(ctx context.Context, env Envelope) error {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	switch env.EventType {
	case EventOrderCreated, EventOrderCancelled, EventOrderStatusUpdated, EventOrderPaid:
	default:
		log.Debug("ignoring event", zap.String("event_type", env.EventType))
		return nil
	}
	if env.EventVersion != EventVersion {
		log.Warn("unsupported event version", zap.String("event_id", env.EventID), zap.Int("version", env.EventVersion))
		return nil
	}

	if p.Dedup != nil {
		seen, err := p.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			log.Warn("dedup lookup failed", zap.String("event_id", env.EventID), zap.Error(err))
		} else if seen {
			return nil
		}
	}

	pl, err := kafkax.UnwrapPayload[OrderPayload](env.Payload)
	if err != nil {
		// a malformed payload will never succeed; skip it
		log.Error("bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	snap := StatusSnapshot{
		OrderID:       pl.OrderID,
		UserID:        pl.UserID,
		OrderStatus:   pl.OrderStatus,
		PaymentStatus: pl.PaymentStatus,
		UpdatedAt:     pl.UpdatedAt,
	}
	if err := p.Cache.Put(ctx, snap); err != nil {
		return fmt.Errorf("project %s: %w", env.EventID, err)
	}

	if p.Dedup != nil {
		if err := p.Dedup.Mark(ctx, env.EventID); err != nil {
			log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	log.Info("order status projected",
		zap.String("order_id", pl.OrderID),
		zap.String("event_type", env.EventType),
		zap.String("order_status", string(pl.OrderStatus)),
		zap.String("payment_status", string(pl.PaymentStatus)))
	return nil
}
