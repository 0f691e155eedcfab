package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// SignerIDKey is the context key for the authenticated signer identity
	SignerIDKey contextKey = "signer_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context. A no-op logger is returned
// when none was attached, so callers never nil-check.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	logger = logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, logger), logger
}

// WithSignerID adds the signer identity to context and returns an enriched logger
func WithSignerID(ctx context.Context, logger *zap.Logger, signerID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, SignerIDKey, signerID)
	logger = logger.With(zap.String("signer_id", signerID))
	return WithContext(ctx, logger), logger
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetSignerID retrieves the signer identity from context
func GetSignerID(ctx context.Context) string {
	if signerID, ok := ctx.Value(SignerIDKey).(string); ok {
		return signerID
	}
	return ""
}

// WithTraceContext adds trace_id and span_id fields from the context's active
// span. The logger is returned unchanged when no valid span exists.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
