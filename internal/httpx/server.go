// Package httpx exposes the shop over HTTP.
package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-bookstore-orders/internal/cart"
	"github.com/ariefcatur/go-bookstore-orders/internal/metrics"
	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/ariefcatur/go-bookstore-orders/internal/payments"
	"github.com/ariefcatur/go-bookstore-orders/internal/shop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]shop.Product, error)
}

type Deps struct {
	Products ProductLister
	Carts    *cart.Service
	Orders   *orders.Service
	Payments *payments.Service
	Auth     Authenticator
	Metrics  *metrics.ServerMetrics
	Logger   *zap.Logger
	Timeout  time.Duration

	// Development adds error details to failure responses.
	Development bool
}

type server struct {
	Deps
	auth        Authenticator
	log         *zap.Logger
	development bool
}

func NewRouter(d Deps) *chi.Mux {
	s := &server{Deps: d, auth: d.Auth, log: d.Logger, development: d.Development}
	if s.auth == nil {
		s.auth = HeaderAuthenticator{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	// server spans continue the caller's trace from traceparent
	r.Use(otelhttp.NewMiddleware("http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(s.log), middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(d.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", s.serve(s.listProducts))
		r.Post("/payments/webhook", s.serve(s.webhook))

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Route("/cart", func(r chi.Router) {
				r.Patch("/add-product-to-cart/{productId}", s.serve(s.addToCart))
				r.Patch("/remove-product-from-cart/{productId}", s.serve(s.removeFromCart))
				r.Patch("/increment-product-in-cart/{productId}", s.serve(s.incrementInCart))
				r.Patch("/decrement-product-in-cart/{productId}", s.serve(s.decrementInCart))
				r.Patch("/clear-cart", s.serve(s.clearCart))
				r.Get("/get-user-cart", s.serve(s.getCart))
			})

			r.Route("/order", func(r chi.Router) {
				r.Post("/create-order", s.serve(s.createOrder))
				r.Get("/get-order/{orderId}", s.serve(s.getOrder))
				r.Get("/get-order-status/{orderId}", s.serve(s.getOrderStatus))
				r.Get("/get-current-user-orders", s.serve(s.currentUserOrders))
				r.Patch("/cancel-order/{orderId}", s.serve(s.cancelOrder))
				r.With(s.requireAdmin).Get("/get-all-orders-admin", s.serve(s.allOrders))
				r.With(s.requireAdmin).Patch("/update-order-status/{orderId}", s.serve(s.updateOrderStatus))
			})

			r.Post("/payments/create-stripe-payment/{orderId}", s.serve(s.createPayment))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "The Requested Url Does Not Exist"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method Not Allowed"})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
