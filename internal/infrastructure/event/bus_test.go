package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func startedBus(t *testing.T) (*InMemoryEventBus, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus, logs
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("routes by type and to wildcard handlers", func(t *testing.T) {
		bus, _ := startedBus(t)
		created := newTestHandler("InvoiceCreated")
		all := newTestHandler()
		bus.Subscribe(created)
		bus.Subscribe(all)

		first := newTestEvent("InvoiceCreated")
		second := newTestEvent("PaymentRegistered")
		require.NoError(t, bus.Publish(ctx, first, second))

		assert.Len(t, created.getHandled(), 1)
		assert.Equal(t, first, created.getHandled()[0])
		assert.Len(t, all.getHandled(), 2)
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus, _ := startedBus(t)
		h := newTestHandler("InvoiceCreated")
		bus.Subscribe(h, "InvoiceRejected")

		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated"), newTestEvent("InvoiceRejected")))

		require.Len(t, h.getHandled(), 1)
		assert.Equal(t, "InvoiceRejected", h.getHandled()[0].EventType())
	})

	t.Run("failing and panicking handlers do not stop the rest", func(t *testing.T) {
		bus, logs := startedBus(t)
		failing := newTestHandler()
		failing.err = errors.New("broker down")
		panicking := newTestHandler()
		panicking.panicWith = "boom"
		healthy := newTestHandler()
		bus.Subscribe(failing)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")))

		assert.Len(t, healthy.getHandled(), 1)
		assert.Equal(t, int64(2), bus.Failures())
		assert.Equal(t, 2, logs.FilterMessage("Handler failed to process event").Len())
	})

	t.Run("unsubscribed handlers receive nothing", func(t *testing.T) {
		bus, _ := startedBus(t)
		h := newTestHandler()
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")))
		assert.Empty(t, h.getHandled())
	})

	t.Run("stopped bus drops events", func(t *testing.T) {
		bus := NewInMemoryEventBus(nil)
		h := newTestHandler()
		bus.Subscribe(h)

		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")))
		assert.Empty(t, h.getHandled())

		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")))
		assert.Len(t, h.getHandled(), 1)
	})
}

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newTestHandler()
	wildcard := newTestHandler()

	registry.Register(typed, "InvoiceCreated", "InvoiceFinalized")
	registry.Register(wildcard)

	assert.Equal(t, 2, registry.Size())
	assert.Len(t, registry.GetHandlers("InvoiceCreated"), 2)
	assert.Len(t, registry.GetHandlers("InvoiceRejected"), 1)

	registry.Unregister(typed)
	assert.Len(t, registry.GetHandlers("InvoiceCreated"), 1)
	assert.Equal(t, 1, registry.Size())
}
