package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultRequestsPerMinute = 1000
	defaultBurst             = 100
)

// IPRateLimiter applies a per-client-IP token bucket. Dashboard traffic
// is bursty (a page load fans out into several API calls), so the burst
// capacity matters more than the steady rate.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	refill  time.Duration // interval between single-token refills
	burst   int
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// newIPRateLimiter creates a limiter from the configured per-minute rate
// and burst capacity. Zero or negative values fall back to the defaults.
func newIPRateLimiter(requestsPerMinute, burst int) *IPRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &IPRateLimiter{
		buckets: make(map[string]*tokenBucket),
		refill:  time.Minute / time.Duration(requestsPerMinute),
		burst:   burst,
	}
}

// allow takes one token from the bucket for ip, refilling first.
func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	bucket, ok := l.buckets[ip]
	if !ok {
		l.buckets[ip] = &tokenBucket{tokens: float64(l.burst) - 1, lastRefill: now}
		return true
	}

	refills := now.Sub(bucket.lastRefill).Nanoseconds() / l.refill.Nanoseconds()
	if refills > 0 {
		bucket.tokens = min(float64(l.burst), bucket.tokens+float64(refills))
		bucket.lastRefill = now
	}

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// rateLimitMiddleware rejects requests over the per-IP budget with 429.
func rateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     "Too many requests. Please try again later.",
				"retry_after": limiter.refill.String(),
			})
			return
		}

		c.Next()
	}
}
