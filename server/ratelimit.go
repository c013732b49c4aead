package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// rateLimiter tracks one token bucket per client IP for the generate
// endpoint. Buckets are created on first sight and never expire; the
// set of distinct clients for a local tool stays small.
type rateLimiter struct {
	mu      sync.Mutex
	perMin  int
	buckets map[string]*rate.Limiter
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 12
	}
	return &rateLimiter{
		perMin:  perMinute,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the client may issue another generate request
func (rl *rateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	limiter, ok := rl.buckets[client]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(rl.perMin)/60.0), rl.perMin)
		rl.buckets[client] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}
