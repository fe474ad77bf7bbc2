package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(cfg RateLimitConfig) (*limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := newLimiter(cfg)
	l.now = clock.now
	return l, clock
}

func hit(h http.Handler, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/coupons/validate", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func actorHeader(r *http.Request) string { return r.Header.Get("X-Actor") }

func TestRateLimit_PerActor(t *testing.T) {
	l, _ := newTestLimiter(RateLimitConfig{Max: 2, Window: time.Minute, KeyFunc: actorHeader})
	h := l.middleware(okHandler())

	for i := range 2 {
		w := hit(h, "guest:a")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := hit(h, "guest:a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.EqualValues(t, 429, body["code"])
	assert.Equal(t, "rate limit exceeded", body["error"])

	assert.Equal(t, http.StatusOK, hit(h, "guest:b").Code)
}

func TestRateLimit_FallsBackToClientIP(t *testing.T) {
	l, _ := newTestLimiter(RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: actorHeader})
	h := l.middleware(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "").Code)
	assert.Equal(t, http.StatusOK, hit(h, "user:u1").Code)
}

func TestRateLimit_SlidingWindow(t *testing.T) {
	l, clock := newTestLimiter(RateLimitConfig{Max: 4, Window: time.Minute})

	for range 4 {
		_, _, ok := l.allow("k")
		require.True(t, ok)
	}
	_, _, ok := l.allow("k")
	require.False(t, ok)

	// Halfway into the next window half of the previous hits still count.
	clock.t = clock.t.Add(90 * time.Second)
	allowed := 0
	for range 4 {
		if _, _, ok := l.allow("k"); ok {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)

	// Two windows later the history is gone.
	clock.t = clock.t.Add(2 * time.Minute)
	remaining, _, ok := l.allow("k")
	assert.True(t, ok)
	assert.Equal(t, 3, remaining)
}

func TestRateLimit_Evict(t *testing.T) {
	l, clock := newTestLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	l.allow("stale")
	clock.t = clock.t.Add(2 * time.Minute)
	l.allow("fresh")

	l.evict()
	assert.NotContains(t, l.windows, "stale")
	assert.Contains(t, l.windows, "fresh")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4444"
	assert.Equal(t, "192.168.1.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, "203.0.113.50", clientIP(req))
}
