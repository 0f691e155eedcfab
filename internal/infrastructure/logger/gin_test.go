package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newGinTestRouter(log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(log))
	router.Use(GinMiddleware(log))
	return router
}

func TestGinMiddlewareLogsRequest(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := newGinTestRouter(zap.New(core))

	router.GET("/invoices", func(c *gin.Context) {
		c.Set("signer_id", "abcd")
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/invoices?status=listed", nil)
	router.ServeHTTP(w, req)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/invoices", fields["path"])
	assert.Equal(t, "status=listed", fields["query"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "abcd", fields["signer_id"])
}

func TestGinMiddlewareWarnsOnClientError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := newGinTestRouter(zap.New(core))

	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestGinMiddlewareErrorsOnServerError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := newGinTestRouter(zap.New(core))

	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := newGinTestRouter(zap.New(core))

	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var recovered bool
	for _, entry := range logs.All() {
		if entry.Message == "Panic recovered" {
			recovered = true
			assert.Equal(t, "boom", entry.ContextMap()["error"])
		}
	}
	assert.True(t, recovered)
}

func TestGetGinLogger(t *testing.T) {
	log := zap.NewNop()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ginLoggerKey, log)
	assert.Same(t, log, GetGinLogger(c))

	// Without a stored logger a no-op fallback comes back.
	bare, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(bare))
}
