package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// StatusCache stores order status snapshots. Writers race between the API
// and the event projector, so Put only moves a snapshot forward in time.
type StatusCache struct {
	rdb *redis.Client
}

func NewStatusCache(rdb *redis.Client) *StatusCache { return &StatusCache{rdb: rdb} }

func statusKey(orderID string) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func (c *StatusCache) Get(ctx context.Context, orderID string) (orders.StatusSnapshot, bool, error) {
	b, err := c.rdb.Get(ctx, statusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.StatusSnapshot{}, false, nil
	}
	if err != nil {
		return orders.StatusSnapshot{}, false, err
	}
	var s orders.StatusSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return orders.StatusSnapshot{}, false, fmt.Errorf("decode status snapshot: %w", err)
	}
	return s, true, nil
}

func (c *StatusCache) Put(ctx context.Context, s orders.StatusSnapshot) error {
	key := statusKey(s.OrderID)
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	const attempts = 3
	for i := 0; i < attempts; i++ {
		err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && !newer(cur, s) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Set(ctx, key, b, TTLStatusCache)
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// newer reports whether s is not older than the cached snapshot.
func newer(cached []byte, s orders.StatusSnapshot) bool {
	var cur orders.StatusSnapshot
	if json.Unmarshal(cached, &cur) != nil {
		return true
	}
	return !s.UpdatedAt.Before(cur.UpdatedAt)
}
