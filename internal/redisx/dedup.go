package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper records processed event ids per consumer.
type Deduper struct {
	rdb      redis.Cmdable
	consumer string
}

func NewDeduper(rdb redis.Cmdable, consumer string) *Deduper {
	return &Deduper{rdb: rdb, consumer: consumer}
}

func (d *Deduper) key(id string) string { return fmt.Sprintf(KeyDedup, d.consumer, id) }

func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	return Exists(ctx, d.rdb, d.key(id))
}

func (d *Deduper) Mark(ctx context.Context, id string) error {
	return d.rdb.Set(ctx, d.key(id), "1", TTLDedup).Err()
}
