package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/cart"
	"github.com/ariefcatur/go-bookstore-orders/internal/catalog"
	"github.com/ariefcatur/go-bookstore-orders/internal/config"
	"github.com/ariefcatur/go-bookstore-orders/internal/firestore"
	"github.com/ariefcatur/go-bookstore-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-bookstore-orders/internal/kafka"
	"github.com/ariefcatur/go-bookstore-orders/internal/memstore"
	"github.com/ariefcatur/go-bookstore-orders/internal/metrics"
	"github.com/ariefcatur/go-bookstore-orders/internal/observability"
	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/payments"
	"github.com/ariefcatur/go-bookstore-orders/internal/postgres"
	"github.com/ariefcatur/go-bookstore-orders/internal/redisx"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := observability.NewLogger(cfg.AppEnv, cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	// Store
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.NewServerMetrics("api")
	views := catalog.NewResolver(store)
	orderOpts := orders.Options{StrictTransitions: cfg.OrderStatusStrict, Logger: log}
	payOpts := payments.Options{Logger: log}

	// Redis: status cache, idempotency keys, webhook dedup
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		cache := redisx.NewStatusCache(rdb)
		orderOpts.Cache, payOpts.Cache = cache, cache
		orderOpts.Idempotency = redisx.NewOrderKeys(rdb)
		payOpts.Dedup = redisx.NewDeduper(rdb, "stripe-webhook")
		log.Info("redis enabled", zap.String("addr", cfg.RedisAddr))
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic, 1024, log)
		prod.Start(ctx)
		events := metrics.CountingEmitter{Next: orders.NewEventPublisher(prod, cfg.ServiceName), Metrics: m}
		orderOpts.Events, payOpts.Events = events, events
		log.Info("kafka enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.EventsTopic))
	}

	router := httpx.NewRouter(httpx.Deps{
		Products: store,
		Carts:    cart.NewService(store, views, log),
		Orders:   orders.NewService(store, views, orderOpts),
		Payments: payments.NewService(store,
			payments.NewStripeGateway(cfg.StripeSecretKey),
			payments.NewStripeVerifier(cfg.StripeWebhookSecret),
			payments.Config{Currency: cfg.PaymentCurrency, SuccessURL: cfg.PaymentSuccessURL, CancelURL: cfg.PaymentCancelURL},
			payOpts),
		Metrics:     m,
		Logger:      log,
		Timeout:     cfg.RequestTimeout,
		Development: cfg.Development(),
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (shop.Store, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}
		s := &postgres.Store{DB: db}
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db migrate: %w", err)
		}
		return s, db.Close, nil
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials)
		if err != nil {
			return nil, nil, err
		}
		return firestore.NewStore(client), func() { _ = client.Close() }, nil
	case "memory":
		log.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
