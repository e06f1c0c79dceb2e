package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/config"
	kafkax "github.com/ariefcatur/go-bookstore-orders/internal/kafka"
	"github.com/ariefcatur/go-bookstore-orders/internal/observability"
	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/redisx"
	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// events projects the order event stream into the redis status cache.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := observability.NewLogger(cfg.AppEnv, cfg.LogLevel, cfg.ServiceName+"-events")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if len(cfg.KafkaBrokers) == 0 || cfg.RedisAddr == "" {
		log.Fatal("KAFKA_BROKERS and REDIS_ADDR are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName + "-events",
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		log.Fatal("tracing", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	projector := &orders.Projector{
		Cache: redisx.NewStatusCache(rdb),
		Dedup: redisx.NewDeduper(rdb, "order-events"),
		Log:   log,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.EventsGroup, cfg.EventsTopic, cfg.EventsWorkers, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("consumer started",
			zap.String("group", cfg.EventsGroup),
			zap.String("topic", cfg.EventsTopic),
			zap.Int("workers", cfg.EventsWorkers))
		if err := cons.Start(ctx, handler(projector, log)); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer")
	cancel()
	<-done

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = shutdownTracing(sctx)
}

func handler(p *orders.Projector, log *zap.Logger) kafkax.Handler {
	tracer := otel.Tracer("github.com/ariefcatur/go-bookstore-orders/cmd/events")
	return func(ctx context.Context, m kafkago.Message) (err error) {
		ctx = otel.GetTextMapPropagator().Extract(ctx, kafkax.HeaderCarrier{Headers: &m.Headers})
		ctx, span := tracer.Start(ctx, "orders.project", trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.destination", m.Topic),
				attribute.String("messaging.event_type", kafkax.HeaderValue(m, "x-event-type")),
			))
		defer func() { observability.End(span, err) }()

		var env orders.Envelope
		if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
			log.Error("bad envelope", zap.Int64("offset", m.Offset), zap.Error(err))
			return nil
		}
		return p.Apply(ctx, env)
	}
}
