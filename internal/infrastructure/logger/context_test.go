package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	FromContext(ctx).Info("stored")
	assert.Equal(t, 1, recorded.Len())

	// Missing or mistyped values fall back to a no-op logger.
	assert.NotPanics(t, func() { FromContext(context.Background()).Info("dropped") })
	wrong := context.WithValue(context.Background(), loggerKey, "not a logger")
	assert.NotPanics(t, func() { FromContext(wrong).Info("dropped") })
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequestID(context.Background(), zap.New(core), "req-1")
	l.Info("hello")
	FromContext(ctx).Info("again")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	for _, entry := range recorded.All() {
		assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
	}
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestWithActor(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, l := WithActor(context.Background(), zap.New(core), "maria", "WAREHOUSE")
	l.Info("registered products")

	name, dept := GetActor(ctx)
	assert.Equal(t, "maria", name)
	assert.Equal(t, "WAREHOUSE", dept)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "maria", fields["actor"])
	assert.Equal(t, "WAREHOUSE", fields["department"])

	name, dept = GetActor(context.Background())
	assert.Empty(t, name)
	assert.Empty(t, dept)
}

func TestWithTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	t.Run("no span leaves logger unchanged", func(t *testing.T) {
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("valid span adds ids", func(t *testing.T) {
		tp := trace.NewTracerProvider(trace.WithSpanProcessor(tracetest.NewSpanRecorder()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		WithTraceContext(ctx, base).Info("traced")

		fields := recorded.All()[recorded.Len()-1].ContextMap()
		assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	})
}

func TestL(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-9")

	tp := trace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	L(ctx).Info("via L")

	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])

	assert.NotPanics(t, func() { L(context.Background()).Info("nop") })
}
