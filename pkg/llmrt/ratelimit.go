package llmrt

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter caps call throughput per key, independent of the circuit
// breaker's failure-based gating. Invoke waits on it before each
// backend.Send when Config.RateLimitKey is set; the pipeline driver sets
// that key ("explore") only for RECON's Explore phase, so it throttles
// Explore's model calls across turns, separately from the 15s Explore to
// Synthesize cool-down the driver itself enforces. Tool executions are
// not rate limited.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter builds a limiter allowing rps requests per second per key,
// with burst allowed to accumulate immediately.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until key's bucket admits one more call, or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	return r.limiterFor(key).Wait(ctx)
}

func (r *RateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.rps, r.burst)
		r.limiters[key] = l
	}
	return l
}

// DefaultRateLimiter allows a sustained 2 requests/second with a burst of 4,
// conservative enough to stay under every provider's per-minute floor while
// not stalling a single-turn Invoke call in the common case.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(2, 4)
}
