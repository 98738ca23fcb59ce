package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/devlog-app/devlog/config"
)

func setupRateLimitTest(t *testing.T, perMinute string) *gin.Engine {
	t.Helper()
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("JWT_SECRET", "rate-limit-test-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", perMinute)
	gin.SetMode(gin.TestMode)

	// Limiters are keyed per IP and persist between tests; clear them.
	limitersMu.Lock()
	limiters = map[string]*rateLimiter{}
	limitersMu.Unlock()

	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	r := setupRateLimitTest(t, "600")

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "1.2.3.4:1000"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	// 2 per minute gives a burst of 1: the second immediate request fails.
	r := setupRateLimitTest(t, "2")

	req1 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req1.RemoteAddr = "1.2.3.4:1000"
	rec1 := httptest.NewRecorder()
	r.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req2.RemoteAddr = "1.2.3.4:1000"
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestRateLimit_SeparateLimitsPerIP(t *testing.T) {
	r := setupRateLimitTest(t, "2")

	req1 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req1.RemoteAddr = "1.2.3.4:1000"
	rec1 := httptest.NewRecorder()
	r.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	// A different client still has its full burst.
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req2.RemoteAddr = "5.6.7.8:2000"
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}
