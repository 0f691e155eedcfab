package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appescrow "github.com/factorline/backend/internal/application/escrow"
	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// RedisInvoiceCache implements the invoice read cache over Redis. Suitable
// for distributed deployments where multiple instances serve reads. The
// cache is best-effort: Redis failures degrade to database reads, never to
// request failures.
type RedisInvoiceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisInvoiceCache creates a new Redis-backed invoice cache
func NewRedisInvoiceCache(cfg RedisConfig, ttl time.Duration) (*RedisInvoiceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisInvoiceCache{
		client:    client,
		keyPrefix: "escrow:invoice:",
		ttl:       ttl,
	}, nil
}

// NewRedisInvoiceCacheWithClient creates a cache with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisInvoiceCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisInvoiceCache {
	if keyPrefix == "" {
		keyPrefix = "escrow:invoice:"
	}
	return &RedisInvoiceCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get returns the cached invoice for an address, if present and decodable.
func (c *RedisInvoiceCache) Get(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, bool) {
	payload, err := c.client.Get(ctx, c.keyPrefix+addr.String()).Bytes()
	if err != nil {
		return nil, false
	}

	var inv escrow.Invoice
	if err := json.Unmarshal(payload, &inv); err != nil {
		// Stale encoding from an older build; drop it.
		c.client.Del(ctx, c.keyPrefix+addr.String())
		return nil, false
	}
	return &inv, true
}

// Set stores the invoice under its address with the configured TTL.
func (c *RedisInvoiceCache) Set(ctx context.Context, inv *escrow.Invoice) {
	payload, err := json.Marshal(inv)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.keyPrefix+inv.Address.String(), payload, c.ttl)
}

// Invalidate drops the cached invoice for an address.
func (c *RedisInvoiceCache) Invalidate(ctx context.Context, addr valueobject.Address) {
	c.client.Del(ctx, c.keyPrefix+addr.String())
}

// Close closes the Redis client
func (c *RedisInvoiceCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisInvoiceCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisInvoiceCache implements the invoice cache contract
var _ appescrow.InvoiceCache = (*RedisInvoiceCache)(nil)
