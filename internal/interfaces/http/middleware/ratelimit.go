package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/factorline/backend/internal/interfaces/http/dto"
)

// RateLimiter implements a per-key token bucket limiter
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64
	capacity float64

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewRateLimiter creates a limiter that allows ratePerSecond requests with
// the given burst capacity per key.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:     make(map[string]*bucket),
		rate:        ratePerSecond,
		capacity:    float64(burst),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request for the given key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &bucket{tokens: rl.capacity - 1, lastFill: now}
		return true
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// cleanupLoop evicts buckets that have refilled completely
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, b := range rl.buckets {
				idle := now.Sub(b.lastFill).Seconds()
				if b.tokens+idle*rl.rate >= rl.capacity {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop terminates the background cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// RateLimit returns a middleware that limits requests per client IP
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(rl, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitBySigner limits requests per authenticated signer, falling back
// to the client IP for unauthenticated requests.
func RateLimitBySigner(rl *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(rl, func(c *gin.Context) string {
		if signer, ok := GetSigner(c); ok {
			return signer.String()
		}
		return c.ClientIP()
	})
}

// RateLimitByKey returns a middleware that limits requests using a custom
// key extractor.
func RateLimitByKey(rl *RateLimiter, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(keyFn(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(dto.ErrCodeRateLimited, "Too many requests"))
			return
		}
		c.Next()
	}
}
