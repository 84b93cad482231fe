package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"listing-portal/internal/apperr"
	"listing-portal/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RateLimiter tracks requests per client key over a sliding window
type RateLimiter struct {
	limit   int
	window  time.Duration
	enabled bool

	// Request tracking
	hits map[string][]time.Time
	mu   sync.Mutex
	now  func() time.Time

	lastSweep time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window for each key
func NewRateLimiter(limit int, window time.Duration, enabled bool) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		enabled: enabled && limit > 0,
		hits:    make(map[string][]time.Time),
		now:     time.Now,
	}
}

// PerMinute is a shorthand for NewRateLimiter(limit, time.Minute, enabled)
func PerMinute(limit int, enabled bool) *RateLimiter {
	return NewRateLimiter(limit, time.Minute, enabled)
}

// AllowRequest records a request for key.
// Returns true if allowed, false if the key exhausted its window
func (rl *RateLimiter) AllowRequest(key string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	window := filterTimes(rl.hits[key], now.Add(-rl.window))
	if len(window) >= rl.limit {
		rl.hits[key] = window
		return false
	}
	rl.hits[key] = append(window, now)
	return true
}

// RetryAfter returns how long key must wait for the oldest request to expire
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	window := rl.hits[key]
	if len(window) == 0 {
		return 0
	}
	wait := window[0].Add(rl.window).Sub(rl.now())
	if wait < 0 {
		return 0
	}
	return wait
}

// sweep drops idle keys at most once per window
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-rl.window)
	for key, times := range rl.hits {
		kept := filterTimes(times, cutoff)
		if len(kept) == 0 {
			delete(rl.hits, key)
			continue
		}
		rl.hits[key] = kept
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(rl.now())
	return Stats{
		Enabled:       true,
		Limit:         rl.limit,
		WindowSeconds: int(rl.window / time.Second),
		TrackedKeys:   len(rl.hits),
	}
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled       bool `json:"enabled"`
	Limit         int  `json:"limit"`
	WindowSeconds int  `json:"window_seconds"`
	TrackedKeys   int  `json:"tracked_keys"`
}

// Reset clears all tracked requests
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.hits = make(map[string][]time.Time)
}

// Middleware rejects a client IP that exceeded its budget with 429
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !rl.AllowRequest(key) {
			if wait := rl.RetryAfter(key); wait > 0 {
				c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			}
			middleware.AbortWithError(c, apperr.RateLimited("too many requests, please try again later"))
			return
		}
		c.Next()
	}
}
