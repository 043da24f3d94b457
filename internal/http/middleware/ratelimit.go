package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// RateLimiter throttles chat traffic with one token bucket per caller IP.
// A bucket refills at perSec tokens a second up to burst; each request
// spends one token.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	perSec  float64
	burst   float64
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

const (
	evictEvery = 5 * time.Minute
	idleAfter  = 10 * time.Minute
)

// NewRateLimiter builds a limiter and starts its idle-bucket eviction loop.
func NewRateLimiter(perSec float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		perSec:  perSec,
		burst:   float64(burst),
	}
	go rl.evictIdle()
	return rl
}

// Allow reports whether the caller has a token left and spends it.
func (rl *RateLimiter) Allow(caller string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[caller]
	if !ok {
		b = &tokenBucket{tokens: rl.burst, seen: now}
		rl.buckets[caller] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * rl.perSec
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(evictEvery)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-idleAfter)
		rl.mu.Lock()
		for caller, b := range rl.buckets {
			if b.seen.Before(cutoff) {
				delete(rl.buckets, caller)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit rejects callers above the sustained rate with a 429 carrying the
// chat API's JSON error shape. The caller key is the X-Real-Ip header when
// chi's RealIP middleware has set it, otherwise the socket address.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(perSec, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := r.RemoteAddr
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				caller = xri
			}
			if !limiter.Allow(caller) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "too many requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
