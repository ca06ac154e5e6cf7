package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"wavelink/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doRequest(router *gin.Engine, remoteAddr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w.Code
}

func TestHTTPRateLimit_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	router := newLimitedRouter(NewHTTPRateLimitMiddleware(cfg))

	for i := 0; i < 200; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234"))
	}
}

func TestHTTPRateLimit_BurstThenReject(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 3
	router := newLimitedRouter(NewHTTPRateLimitMiddleware(cfg))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234"))
}

func TestHTTPRateLimit_PerIPIsolation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 1
	router := newLimitedRouter(NewHTTPRateLimitMiddleware(cfg))

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234"))
	// A different client is not affected.
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2:1234"))
}

func TestWSConnectRateLimit_BurstThenReject(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.WebSocket.ConnectionsPerMinute = 2
	router := newLimitedRouter(NewWSConnectRateLimitMiddleware(cfg))

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	// A malformed forwarded header falls back to the remote address.
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "10.0.0.1", clientIP(req))
}
