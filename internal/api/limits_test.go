package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestNewIPRateLimiterDefaults(t *testing.T) {
	l := newIPRateLimiter(0, 0)
	assert.Equal(t, defaultBurst, l.burst)
	assert.Equal(t, time.Minute/time.Duration(defaultRequestsPerMinute), l.refill)

	l = newIPRateLimiter(-5, -1)
	assert.Equal(t, defaultBurst, l.burst)

	l = newIPRateLimiter(60, 3)
	assert.Equal(t, 3, l.burst)
	assert.Equal(t, time.Second, l.refill)
}

func TestIPRateLimiterBurstExhaustion(t *testing.T) {
	l := newIPRateLimiter(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, l.allow("10.0.0.1"))

	// Buckets are per IP.
	assert.True(t, l.allow("10.0.0.2"))
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(rateLimitMiddleware(newIPRateLimiter(60, 2)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}
