package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// domainLimiter applies per-domain politeness delays using token buckets,
// one limiter per host.
type domainLimiter struct {
	delay    time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newDomainLimiter(delay time.Duration) *domainLimiter {
	return &domainLimiter{
		delay:    delay,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the domain's rate limit allows another request, or the
// context is cancelled.
func (d *domainLimiter) Wait(ctx context.Context, host string) error {
	if d.delay <= 0 || host == "" {
		return nil
	}

	d.mu.Lock()
	limiter, ok := d.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(d.delay), 1)
		d.limiters[host] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
