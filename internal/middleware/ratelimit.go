package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"videotube/internal/api"
	"videotube/internal/utils"
)

// RateLimiter is a sliding window limiter. Keys that stay quiet for a full
// window fall out of the LRU on their own.
type RateLimiter struct {
	mu       sync.Mutex
	requests *expirable.LRU[string, []time.Time]
	window   time.Duration
	maxReqs  int
	now      func() time.Time
}

// NewRateLimiter creates a limiter tracking at most maxKeys clients
func NewRateLimiter(window time.Duration, maxReqs, maxKeys int) *RateLimiter {
	return &RateLimiter{
		requests: expirable.NewLRU[string, []time.Time](maxKeys, nil, window),
		window:   window,
		maxReqs:  maxReqs,
		now:      time.Now,
	}
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	reqs, _ := rl.requests.Get(key)

	// Remove requests outside the window
	filtered := make([]time.Time, 0, len(reqs)+1)
	for _, t := range reqs {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) >= rl.maxReqs {
		rl.requests.Add(key, filtered)
		return false
	}

	rl.requests.Add(key, append(filtered, now))
	return true
}

// RateLimitMiddleware answers 429 once keyFunc's bucket is exhausted
func RateLimitMiddleware(limiter *RateLimiter, keyFunc func(*http.Request) string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				api.WriteError(w, log, utils.NewAppError(utils.ErrTooManyRequests, "Too many requests, try again later", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIPKey keys on RemoteAddr. Forwarding headers only count when the router
// mounts chi's RealIP, which it does for TRUST_PROXY_HEADERS=true.
func GetIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
