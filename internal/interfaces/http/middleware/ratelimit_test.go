package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	defer rl.Stop()

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))

	// Separate keys have separate buckets.
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(rl))
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
}

func TestRateLimitByKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitByKey(rl, func(c *gin.Context) string {
		return c.GetHeader("X-Client")
	}))
	r.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(client string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("one"))
	assert.Equal(t, http.StatusTooManyRequests, hit("one"))
	assert.Equal(t, http.StatusOK, hit("two"))
}
