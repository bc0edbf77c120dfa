package clients

import (
	"context"
	"sync"
	"time"
)

// RateLimiter controls the rate of outbound API requests.
type RateLimiter interface {
	// Allow checks if a request is allowed without blocking
	Allow() bool
	// Wait blocks until a request is allowed or the context is cancelled
	Wait(ctx context.Context) error
	// SetRate updates the rate limit in requests per second
	SetRate(ratePerSecond int)
	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats contains rate limiter statistics.
type RateLimiterStats struct {
	RatePerSecond  int
	TokensAvail    float64
	TotalAllowed   int64
	TotalThrottled int64
}

// tokenBucket implements RateLimiter with a token bucket. A zero rate
// disables limiting entirely.
type tokenBucket struct {
	mu             sync.Mutex
	rate           float64
	burst          float64
	tokens         float64
	lastRefill     time.Time
	totalAllowed   int64
	totalThrottled int64
}

// NewTokenBucket creates a token bucket limiter at the given rate per
// second. Burst capacity equals one second of tokens.
func NewTokenBucket(ratePerSecond int) RateLimiter {
	tb := &tokenBucket{
		lastRefill: time.Now(),
	}
	tb.SetRate(ratePerSecond)
	// Start with a full bucket so the first burst is not throttled.
	tb.tokens = tb.burst
	return tb
}

func (tb *tokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
}

// Allow checks if a request is allowed without blocking.
func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.rate <= 0 {
		tb.totalAllowed++
		return true
	}

	tb.refillLocked(time.Now())
	if tb.tokens >= 1 {
		tb.tokens--
		tb.totalAllowed++
		return true
	}
	tb.totalThrottled++
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		if tb.rate <= 0 {
			tb.totalAllowed++
			tb.mu.Unlock()
			return nil
		}
		tb.refillLocked(time.Now())
		if tb.tokens >= 1 {
			tb.tokens--
			tb.totalAllowed++
			tb.mu.Unlock()
			return nil
		}
		// Time until one token accrues.
		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.totalThrottled++
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SetRate updates the rate limit.
func (tb *tokenBucket) SetRate(ratePerSecond int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.rate = float64(ratePerSecond)
	tb.burst = float64(ratePerSecond)
	if tb.burst < 1 {
		tb.burst = 1
	}
	if tb.tokens > tb.burst {
		tb.tokens = tb.burst
	}
}

// GetStats returns current statistics.
func (tb *tokenBucket) GetStats() RateLimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return RateLimiterStats{
		RatePerSecond:  int(tb.rate),
		TokensAvail:    tb.tokens,
		TotalAllowed:   tb.totalAllowed,
		TotalThrottled: tb.totalThrottled,
	}
}
