package orders

import (
	"context"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-bookstore-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// EventPublisher writes order events as versioned envelopes.
type EventPublisher struct {
	producer Publisher
	service  string
}

func NewEventPublisher(p Publisher, service string) *EventPublisher {
	return &EventPublisher{producer: p, service: service}
}

func (p *EventPublisher) Emit(ctx context.Context, ev Event) error {
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     ev.Type,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.service,
		CorrelationID: ev.Order.ID,
		Payload:       kafkax.MustMarshal(ev.Payload()),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}

	headers := []kafkago.Header{
		kafkax.Header("x-event-type", ev.Type),
		kafkax.Header("x-event-version", strconv.Itoa(EventVersion)),
	}
	otel.GetTextMapPropagator().Inject(ctx, kafkax.HeaderCarrier{Headers: &headers})

	return p.producer.Publish(PartitionKey(ev.Order.ID), kafkax.MustMarshal(env), headers...)
}
