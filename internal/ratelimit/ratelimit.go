// Package ratelimit paces event replay in the runner.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

type Limiter struct {
	limiter *rate.Limiter
}

// New uses 0 or negative eventsPerSecond for no rate limiting. A burst below
// one is raised to one, so the first event never waits.
func New(eventsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if eventsPerSecond <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst)}
}

// Wait blocks until the next event may be released or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow is non-blocking and useful for checking throttling.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Limit reports the configured rate, 0 when unlimited.
func (l *Limiter) Limit() float64 {
	limit := l.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return float64(limit)
}

func (l *Limiter) Burst() int {
	return l.limiter.Burst()
}
