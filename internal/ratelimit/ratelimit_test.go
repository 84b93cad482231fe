package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAllowRequest_PerKeyWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute, true)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.AllowRequest("a"))
	assert.True(t, rl.AllowRequest("a"))
	assert.False(t, rl.AllowRequest("a"))
	assert.True(t, rl.AllowRequest("b"), "keys are independent")

	assert.Equal(t, time.Minute, rl.RetryAfter("a"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.AllowRequest("a"))
	assert.Equal(t, 1, rl.GetStats().TrackedKeys, "idle keys are swept")
}

func TestAllowRequest_Disabled(t *testing.T) {
	rl := PerMinute(1, false)
	for i := 0; i < 5; i++ {
		assert.True(t, rl.AllowRequest("a"))
	}
	assert.False(t, rl.GetStats().Enabled)
}

func TestMiddleware_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := PerMinute(1, true)

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"rate_limited"`)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	rl.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := PerMinute(2, true)

	r := gin.New()
	assert.NoError(t, r.SetTrustedProxies(nil))
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, rl.GetStats().TrackedKeys)
}

func TestMiddleware_KeysOnForwardedForFromTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := PerMinute(1, true)

	r := gin.New()
	assert.NoError(t, r.SetTrustedProxies([]string{"192.0.2.0/24"}))
	r.Use(rl.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, rl.GetStats().TrackedKeys)
}
