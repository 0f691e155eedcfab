package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	appescrow "github.com/factorline/backend/internal/application/escrow"
	"github.com/factorline/backend/internal/infrastructure/config"
)

// InvoiceCacheFactory creates invoice caches based on configuration
type InvoiceCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// InvoiceCacheFactoryOption is a functional option for configuring the factory
type InvoiceCacheFactoryOption func(*InvoiceCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) InvoiceCacheFactoryOption {
	return func(f *InvoiceCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to a local cache when
// Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) InvoiceCacheFactoryOption {
	return func(f *InvoiceCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewInvoiceCacheFactory creates a new factory
func NewInvoiceCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...InvoiceCacheFactoryOption) *InvoiceCacheFactory {
	f := &InvoiceCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed invoice cache
func (f *InvoiceCacheFactory) CreateRedisCache() (appescrow.InvoiceCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisInvoiceCache(redisCfg, f.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis invoice cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory invoice cache
// Suitable for single-instance deployments and testing
func (f *InvoiceCacheFactory) CreateInMemoryCache() appescrow.InvoiceCache {
	return NewInMemoryInvoiceCache(f.ttl)
}

// CreateCache creates an invoice cache based on what is reachable. It tries
// Redis first and falls back to the local cache when allowed.
func (f *InvoiceCacheFactory) CreateCache() (appescrow.InvoiceCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis invoice cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for invoice cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory invoice cache. "+
		"Cached reads will not be shared across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
