package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func testConsumer() *Consumer {
	return &Consumer{backoff: time.Millisecond, maxBackoff: 4 * time.Millisecond, alertAfter: 3, log: zap.NewNop()}
}

func TestHandleRetriesUntilSuccess(t *testing.T) {
	c := testConsumer()
	calls := 0
	h := func(context.Context, kafka.Message) error {
		calls++
		if calls < 6 {
			return errors.New("redis unavailable")
		}
		return nil
	}
	if err := c.handle(context.Background(), h, kafka.Message{}, c.log); err != nil {
		t.Fatal(err)
	}
	if calls != 6 {
		t.Fatalf("calls = %d, want 6", calls)
	}
}

func TestHandleStopsWithContext(t *testing.T) {
	c := testConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	h := func(context.Context, kafka.Message) error { return errors.New("down") }

	if err := c.handle(ctx, h, kafka.Message{}, c.log); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}
