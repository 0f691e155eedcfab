package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newGormTestLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func traceQuery(g *GormLogger, begin time.Time, err error) {
	g.Trace(context.Background(), begin, func() (string, int64) {
		return "SELECT * FROM invoices WHERE address = $1", 1
	}, err)
}

func TestGormLoggerTraceDebugLogsQuery(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Info)

	traceQuery(g, time.Now(), nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "query", entries[0].Message)
	assert.Contains(t, entries[0].ContextMap()["sql"], "FROM invoices")
}

func TestGormLoggerTraceWarnLevelStaysQuiet(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Warn)

	traceQuery(g, time.Now(), nil)

	assert.Empty(t, logs.All())
}

func TestGormLoggerTraceSlowQuery(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

	traceQuery(g, time.Now().Add(-50*time.Millisecond), nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "slow query", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestGormLoggerTraceError(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Error)

	traceQuery(g, time.Now(), assert.AnError)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "query failed", entries[0].Message)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}

func TestGormLoggerTraceSkipsRecordNotFound(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Error)

	traceQuery(g, time.Now(), gorm.ErrRecordNotFound)

	assert.Empty(t, logs.All())
}

func TestGormLoggerTraceReportsRecordNotFoundWhenAsked(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Error, WithSkipNotFound(false))

	traceQuery(g, time.Now(), gorm.ErrRecordNotFound)

	require.Len(t, logs.All(), 1)
}

func TestGormLoggerTraceSilent(t *testing.T) {
	g, logs := newGormTestLogger(gormlogger.Silent)

	traceQuery(g, time.Now(), assert.AnError)

	assert.Empty(t, logs.All())
}

func TestGormLoggerLogMode(t *testing.T) {
	g, _ := newGormTestLogger(gormlogger.Warn)

	reduced := g.LogMode(gormlogger.Silent)

	// LogMode returns a copy; the original keeps its level.
	assert.Equal(t, gormlogger.Warn, g.level)
	assert.Equal(t, gormlogger.Silent, reduced.(*GormLogger).level)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"debug", gormlogger.Info},
		{"info", gormlogger.Warn},
		{"warn", gormlogger.Warn},
		{"warning", gormlogger.Warn},
		{"error", gormlogger.Error},
		{"fatal", gormlogger.Error},
		{"", gormlogger.Warn},
		{"bogus", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}
