package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ariefcatur/go-bookstore-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := NewServerMetrics("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/order/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/order/"+id, nil))
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET /order/{id}", "418")); got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "bookstore_test_http_requests_total") {
		t.Fatal("counter not exposed")
	}
}

type failingEmitter struct{ err error }

func (f failingEmitter) Emit(context.Context, orders.Event) error { return f.err }

func TestCountingEmitter(t *testing.T) {
	m := NewServerMetrics("test")
	ok := CountingEmitter{Next: failingEmitter{}, Metrics: m}
	bad := CountingEmitter{Next: failingEmitter{err: errors.New("closed")}, Metrics: m}

	_ = ok.Emit(context.Background(), orders.Event{Type: orders.EventOrderPaid})
	if err := bad.Emit(context.Background(), orders.Event{Type: orders.EventOrderPaid}); err == nil {
		t.Fatal("error swallowed")
	}
	if got := testutil.ToFloat64(m.OrderEvents.WithLabelValues(orders.EventOrderPaid, "error")); got != 1 {
		t.Fatalf("errors = %v", got)
	}

	var nilMetrics *ServerMetrics
	nilMetrics.Webhook("processed")
	m.Webhook("duplicate")
	if got := testutil.ToFloat64(m.WebhookEvents.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("webhooks = %v", got)
	}
}
