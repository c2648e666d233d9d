package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// bucket tracks a fixed-window request count for one caller+class pair.
type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter applies a fixed request budget per short window, keyed by
// client address and operation class. Exceeding the budget yields 429 with
// a Retry-After hint.
type RateLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow counts one request against the key's window and reports whether it
// fits the budget, along with the seconds until the window resets.
func (rl *RateLimiter) allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(rl.window)}
		rl.buckets[key] = b

		// Opportunistic eviction keeps the map from growing without bound
		// on long-running servers.
		for k, old := range rl.buckets {
			if now.After(old.resetAt) {
				delete(rl.buckets, k)
			}
		}
	}

	b.count++
	retryAfter := int(b.resetAt.Sub(now).Seconds()) + 1
	return b.count <= rl.max, retryAfter
}

// Limit returns a middleware enforcing the budget for one operation class.
// Separate classes (e.g. "orders:write", "categories:write") have
// independent budgets for the same caller.
func (rl *RateLimiter) Limit(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				ip = fwd
			}

			ok, retryAfter := rl.allow(ip + "|" + class)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
