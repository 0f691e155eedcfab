package cache

import (
	"context"
	"sync"
	"time"

	appescrow "github.com/factorline/backend/internal/application/escrow"
	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// entry is a cached invoice with its expiry.
type entry struct {
	invoice   escrow.Invoice
	expiresAt time.Time
}

// InMemoryInvoiceCache implements the invoice read cache with a local map.
// This is suitable for single-instance deployments and testing; it does not
// share state across processes.
type InMemoryInvoiceCache struct {
	mu        sync.RWMutex
	entries   map[valueobject.Address]entry
	ttl       time.Duration
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryInvoiceCache creates a new in-memory invoice cache
// It starts a background goroutine to clean up expired entries
func NewInMemoryInvoiceCache(ttl time.Duration) *InMemoryInvoiceCache {
	cache := &InMemoryInvoiceCache{
		entries:  make(map[valueobject.Address]entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	cache.wg.Add(1)
	go cache.cleanupLoop()

	return cache
}

// Get returns the cached invoice for an address, if present and fresh.
func (c *InMemoryInvoiceCache) Get(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[addr]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false
	}

	inv := e.invoice
	return &inv, true
}

// Set stores a copy of the invoice under its address.
func (c *InMemoryInvoiceCache) Set(ctx context.Context, inv *escrow.Invoice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[inv.Address] = entry{
		invoice:   *inv,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate drops the cached invoice for an address.
func (c *InMemoryInvoiceCache) Invalidate(ctx context.Context, addr valueobject.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, addr)
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (c *InMemoryInvoiceCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryInvoiceCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryInvoiceCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for addr, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, addr)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemoryInvoiceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryInvoiceCache implements the invoice cache contract
var _ appescrow.InvoiceCache = (*InMemoryInvoiceCache)(nil)
