package fetcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter spaces requests to one host at least a fixed interval
// apart. A 429 halves the rate (down to a quarter of the configured rate);
// each success raises it by 20% but never above the configured rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter that admits one request per interval.
// A non-positive interval disables pacing.
func NewAdaptiveLimiter(interval time.Duration) *AdaptiveLimiter {
	r := rate.Inf
	if interval > 0 {
		r = rate.Every(interval)
	}
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(r, 1),
		initialRate: r,
		minRate:     r / 4,
		currentRate: r,
	}
}

// Wait blocks until the next request may start.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess recovers the rate toward the configured value.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate == a.initialRate {
		return
	}
	next := a.currentRate * 1.2
	if next > a.initialRate {
		next = a.initialRate
	}
	a.currentRate = next
	a.limiter.SetLimit(next)
}

// OnRateLimit halves the rate after a 429 response.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialRate == rate.Inf {
		return
	}
	next := a.currentRate * 0.5
	if next < a.minRate {
		next = a.minRate
	}
	a.currentRate = next
	a.limiter.SetLimit(next)
	zap.L().Warn("fetcher: rate limited, slowing down",
		zap.Duration("interval", a.intervalLocked()),
	)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

func (a *AdaptiveLimiter) intervalLocked() time.Duration {
	if a.currentRate == rate.Inf || a.currentRate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(a.currentRate))
}
