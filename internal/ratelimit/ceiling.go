package ratelimit

import (
	"golang.org/x/time/rate"
)

// Ceiling is the global cross-queue claim ceiling. Claims denied here are
// simply deferred to the next poll; the per-job attempt budget is untouched.
type Ceiling struct {
	limiter *rate.Limiter
}

// NewCeiling allows perMinute claims per minute with a burst of one tenth of
// the budget so a cold start cannot flood downstream services.
func NewCeiling(perMinute int) *Ceiling {
	if perMinute <= 0 {
		perMinute = 1
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Ceiling{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

// Allow reports whether one more claim may proceed right now.
func (c *Ceiling) Allow() bool {
	return c.limiter.Allow()
}
