package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/resale/backoffice/internal/domain/receiving"
	"github.com/resale/backoffice/internal/domain/shared"
	"github.com/resale/backoffice/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap/zaptest"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func createdInvoiceEvent(t *testing.T) *receiving.InvoiceCreatedEvent {
	t.Helper()
	wf := receiving.NewWorkflow(receiving.DefaultPolicy(), shared.UUIDGenerator{},
		shared.NewFixedClock(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)))
	inv, err := wf.CreateInvoice(receiving.CreateInvoiceParams{
		SupplierID:       uuid.New(),
		InvoiceNumber:    "NF-7001",
		TotalValue:       decimal.RequireFromString("900.00"),
		QuantityInformed: 2,
		PaymentTerms:     receiving.PaymentTermsFullyPrepaid,
	}, receiving.Actor{Name: "Ana", Department: receiving.DepartmentWarehouse})
	require.NoError(t, err)
	events := inv.GetDomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*receiving.InvoiceCreatedEvent)
	require.True(t, ok)
	return created
}

func TestEventSerializer(t *testing.T) {
	s := NewEventSerializer()
	event := createdInvoiceEvent(t)

	data, err := s.Encode(event)
	require.NoError(t, err)

	decoded, err := s.Decode(data)
	require.NoError(t, err)
	got, ok := decoded.(*receiving.InvoiceCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID(), got.EventID())
	assert.Equal(t, event.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, receiving.PaymentTermsFullyPrepaid, got.PaymentTerms)
	assert.True(t, event.TotalValue.Equal(got.TotalValue))

	assert.True(t, s.IsRegistered(receiving.EventTypeCreditNoteIssued))
	_, err = s.Decode([]byte(`{"event_type":"SomethingElse","payload":{}}`))
	assert.ErrorContains(t, err, "unknown event type: SomethingElse")
	_, err = s.Decode([]byte(`not json`))
	assert.ErrorContains(t, err, "failed to unmarshal envelope")
}

func TestKafkaForwarder(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "RegisterPayment")
	defer span.End()

	t.Run("writes keyed envelope with trace headers", func(t *testing.T) {
		writer := &fakeWriter{}
		f := NewKafkaForwarder(writer, NewEventSerializer(), zaptest.NewLogger(t))
		event := createdInvoiceEvent(t)

		require.NoError(t, f.Handle(ctx, event))

		require.Len(t, writer.messages, 1)
		msg := writer.messages[0]
		assert.Equal(t, event.AggregateID().String(), string(msg.Key))
		carrier := headerCarrier(msg.Headers)
		assert.Equal(t, receiving.EventTypeInvoiceCreated, carrier.Get("event_type"))
		assert.Equal(t, event.EventID().String(), carrier.Get("event_id"))
		assert.Contains(t, carrier.Get("traceparent"), span.SpanContext().TraceID().String())

		decoded, err := NewEventSerializer().Decode(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, event.EventID(), decoded.EventID())
	})

	t.Run("writer errors are returned", func(t *testing.T) {
		writer := &fakeWriter{err: errors.New("leader not available")}
		f := NewKafkaForwarder(writer, NewEventSerializer(), nil)

		err := f.Handle(ctx, createdInvoiceEvent(t))
		assert.ErrorContains(t, err, "failed to forward InvoiceCreated to kafka")
	})

	t.Run("subscribes to everything through the bus", func(t *testing.T) {
		writer := &fakeWriter{}
		f := NewKafkaForwarder(writer, NewEventSerializer(), nil)
		bus, _ := startedBus(t)
		bus.Subscribe(f)

		require.NoError(t, bus.Publish(ctx, createdInvoiceEvent(t), newTestEvent("Unregistered")))

		// Unregistered types still encode; only decoding needs registration.
		assert.Len(t, writer.messages, 2)
		require.NoError(t, f.Close())
		assert.True(t, writer.closed)
	})
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(config.KafkaConfig{
		Brokers:      []string{"kafka-1:9092", "kafka-2:9092"},
		Topic:        "invoice-events",
		BatchTimeout: 50 * time.Millisecond,
	})
	defer w.Close()

	assert.Equal(t, "invoice-events", w.Topic)
	assert.Contains(t, w.Addr.String(), "kafka-1:9092")
	assert.Contains(t, w.Addr.String(), "kafka-2:9092")
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
