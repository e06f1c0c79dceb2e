package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRequestContinuesCallerTrace(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prevProp := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTextMapPropagator(prevProp)
	})

	const (
		traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
		spanID  = "00f067aa0ba902b7"
	)
	h := newHarness(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/get-user-cart", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("traceparent", "00-"+traceID+"-"+spanID+"-01")
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", res.Code, res.Body.String())
	}

	spans := rec.Ended()
	var server, service bool
	for _, s := range spans {
		if s.SpanContext().TraceID().String() != traceID {
			t.Fatalf("span %q started trace %s", s.Name(), s.SpanContext().TraceID())
		}
		switch s.Name() {
		case "GET /api/v1/cart/get-user-cart":
			server = s.Parent().SpanID().String() == spanID
		case "cart.get":
			service = true
		}
	}
	if !server || !service {
		t.Fatalf("server span parented = %v, service span seen = %v (%d spans)", server, service, len(spans))
	}
}
