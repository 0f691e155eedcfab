package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger adapts a zap logger to gorm's logger.Interface. SQL statements
// are logged at debug, slow queries at warn, failures at error.
type GormLogger struct {
	zap           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	skipNotFound  bool
}

// GormLoggerOption customizes a GormLogger.
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration beyond which a query is logged as slow.
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(g *GormLogger) {
		g.slowThreshold = d
	}
}

// WithSkipNotFound suppresses gorm.ErrRecordNotFound from the error log.
// Lookups that legitimately miss (invoice closed, account absent) stay quiet.
func WithSkipNotFound(skip bool) GormLoggerOption {
	return func(g *GormLogger) {
		g.skipNotFound = skip
	}
}

// NewGormLogger creates a gorm logger backed by zap.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	g := &GormLogger{
		zap:           zapLogger,
		level:         level,
		slowThreshold: 200 * time.Millisecond,
		skipNotFound:  true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LogMode returns a copy of the logger at the given level.
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

// Info logs informational messages from gorm.
func (g *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.zap.Sugar().Infof(msg, args...)
	}
}

// Warn logs warnings from gorm.
func (g *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.zap.Sugar().Warnf(msg, args...)
	}
}

// Error logs errors from gorm.
func (g *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.zap.Sugar().Errorf(msg, args...)
	}
}

// Trace logs a completed statement with timing and affected row count.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case err != nil && g.level >= gormlogger.Error && !(g.skipNotFound && errors.Is(err, gorm.ErrRecordNotFound)):
		g.zap.Error("query failed", append(fields, zap.Error(err))...)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		g.zap.Warn("slow query", append(fields, zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= gormlogger.Info:
		g.zap.Debug("query", fields...)
	}
}

// MapGormLogLevel converts the service log level to a gorm log level. SQL
// statement tracing only happens at debug.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "info", "warn", "warning":
		return gormlogger.Warn
	case "error", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
