package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContextRoundTrip(t *testing.T) {
	log, _ := newObservedLogger()

	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestFromContextMissingLoggerIsNop(t *testing.T) {
	log := FromContext(context.Background())

	require.NotNil(t, log)
	// Logging through the fallback must not panic.
	log.Info("ignored")
}

func TestWithRequestID(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("handled")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithSignerID(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, enriched := WithSignerID(context.Background(), log, "aabb")

	assert.Equal(t, "aabb", GetSignerID(ctx))

	enriched.Warn("rejected")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "aabb", entries[0].ContextMap()["signer_id"])
}

func TestWithRequestIDThenSignerIDStacksFields(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-1")
	ctx, enriched = WithSignerID(ctx, enriched, "signer-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "signer-1", GetSignerID(ctx))

	enriched.Info("purchase")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "signer-1", fields["signer_id"])
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetSignerID(context.Background()))
}

func TestWithTraceContextNoSpan(t *testing.T) {
	log, _ := newObservedLogger()

	// Without a span the logger comes back untouched.
	assert.Same(t, log, WithTraceContext(context.Background(), log))
}

func TestWithTraceContextValidSpan(t *testing.T) {
	log, logs := newObservedLogger()

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	WithTraceContext(ctx, log).Info("traced")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanCtx.SpanID().String(), fields["span_id"])
}
