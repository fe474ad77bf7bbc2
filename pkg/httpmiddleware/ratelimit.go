package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window for one key.
	Max    int
	Window time.Duration
	// KeyFunc picks the limited identity, typically the actor key. Requests
	// for which it returns "" are keyed by client IP.
	KeyFunc func(*http.Request) string
}

// window counts hits in the current and previous fixed windows. The
// effective count weights the previous window by its overlap with the
// sliding window ending now.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// allow records a hit for key unless the limit is reached.
func (l *limiter) allow(key string) (remaining int, resetAt time.Time, ok bool) {
	now := l.now()
	size := l.cfg.Window

	l.mu.Lock()
	defer l.mu.Unlock()

	win, found := l.windows[key]
	if !found {
		win = &window{currStart: now.Truncate(size)}
		l.windows[key] = win
	}
	if elapsed := now.Sub(win.currStart); elapsed >= size {
		win.prev = win.curr
		if elapsed >= 2*size {
			win.prev = 0
		}
		win.curr = 0
		win.currStart = now.Truncate(size)
	}

	overlap := 1 - now.Sub(win.currStart).Seconds()/size.Seconds()
	effective := win.prev*math.Max(overlap, 0) + win.curr
	resetAt = win.currStart.Add(size)
	if effective >= float64(l.cfg.Max) {
		return 0, resetAt, false
	}

	win.curr++
	return max(int(float64(l.cfg.Max)-effective-1), 0), resetAt, true
}

// evict drops keys idle for two windows.
func (l *limiter) evict() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, win := range l.windows {
		if now.Sub(win.currStart) >= 2*l.cfg.Window {
			delete(l.windows, key)
		}
	}
}

// RateLimitWithCleanup limits requests per key with a sliding window and
// evicts idle keys every two windows until ctx is done. Over-limit requests
// get 429 with Retry-After.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict()
			}
		}
	}()
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ""
		if l.cfg.KeyFunc != nil {
			key = l.cfg.KeyFunc(r)
		}
		if key == "" {
			key = "ip:" + clientIP(r)
		}

		remaining, resetAt, ok := l.allow(key)
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !ok {
			retry := max(resetAt.Sub(l.now()), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
