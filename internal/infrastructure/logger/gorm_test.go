package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

const invoiceSelect = "SELECT * FROM invoice_documents WHERE id = 'a1'"

func observedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func statement(rows int64) func() (string, int64) {
	return func() (string, int64) { return invoiceSelect, rows }
}

func TestGormLogger_TraceCorrelation(t *testing.T) {
	l, logs := observedGormLogger(gormlogger.Info)

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	ctx, span := tp.Tracer("test").Start(context.Background(), "SaveWithLock")
	defer span.End()
	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-42")

	l.Trace(ctx, time.Now(), statement(1), nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gorm", entry.LoggerName)
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.Equal(t, invoiceSelect, fields["sql"])
	assert.EqualValues(t, 1, fields["rows"])
}

func TestGormLogger_TraceWithoutSpan(t *testing.T) {
	l, logs := observedGormLogger(gormlogger.Info)

	l.Trace(context.Background(), time.Now(), statement(0), nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "request_id")
}

func TestGormLogger_TraceLevels(t *testing.T) {
	t.Run("errors except record not found", func(t *testing.T) {
		l, logs := observedGormLogger(gormlogger.Error)

		l.Trace(context.Background(), time.Now(), statement(0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())

		l.Trace(context.Background(), time.Now(), statement(0), errors.New("duplicate key"))
		require.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("record not found is logged when asked", func(t *testing.T) {
		l, logs := observedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
		l.Trace(context.Background(), time.Now(), statement(0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	})

	t.Run("slow statements warn", func(t *testing.T) {
		l, logs := observedGormLogger(gormlogger.Warn, WithSlowThreshold(10*time.Millisecond))
		l.Trace(context.Background(), time.Now().Add(-50*time.Millisecond), statement(1), nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Contains(t, logs.All()[0].Message, "SLOW SQL")
	})

	t.Run("warn level hides fast statements", func(t *testing.T) {
		l, logs := observedGormLogger(gormlogger.Warn)
		l.Trace(context.Background(), time.Now(), statement(1), nil)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("silent mode from LogMode", func(t *testing.T) {
		l, logs := observedGormLogger(gormlogger.Info)
		silent := l.LogMode(gormlogger.Silent)
		silent.Trace(context.Background(), time.Now(), statement(1), errors.New("boom"))
		assert.Equal(t, 0, logs.Len())
		assert.Equal(t, gormlogger.Info, l.logLevel)
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"debug", gormlogger.Info},
		{"DEBUG", gormlogger.Info},
		{"info", gormlogger.Warn},
		{"warn", gormlogger.Warn},
		{"error", gormlogger.Error},
		{"silent", gormlogger.Silent},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.level), "level %q", tt.level)
	}
}
