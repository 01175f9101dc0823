// Package ratelimit throttles outbound calls per upstream source so a burst of
// page renders cannot exceed what a partner API tolerates.
package ratelimit

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type Limit struct {
	RequestsPerSecond float64
	Burst             int
}

func DefaultLimit() Limit {
	return Limit{
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

type SourceLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	fallback Limit
}

func NewSourceLimiter(fallback Limit, perSource map[string]Limit) *SourceLimiter {
	l := &SourceLimiter{
		limiters: make(map[string]*rate.Limiter, len(perSource)),
		fallback: fallback,
	}
	for source, lim := range perSource {
		l.limiters[source] = newLimiter(lim)
	}
	return l
}

func newLimiter(l Limit) *rate.Limiter {
	if l.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := l.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(l.RequestsPerSecond), burst)
}

func (l *SourceLimiter) limiter(source string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[source]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok = l.limiters[source]; ok {
		return lim
	}
	lim = newLimiter(l.fallback)
	l.limiters[source] = lim
	return lim
}

func (l *SourceLimiter) Set(source string, lim Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.limiters[source] = newLimiter(lim)
}

// Wait blocks until source may issue a call or ctx is done.
func (l *SourceLimiter) Wait(ctx context.Context, source string) error {
	if err := l.limiter(source).Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limit %s", source)
	}
	return nil
}

func (l *SourceLimiter) Allow(source string) bool {
	return l.limiter(source).Allow()
}
