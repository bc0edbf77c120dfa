package clients

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/logger"
)

// RetryPolicy implements retry with exponential backoff and jitter.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	multiplier  float64
	jitter      float64
}

// NewRetryPolicy creates a retry policy from reliability settings.
func NewRetryPolicy(rc config.ReliabilityConfig) *RetryPolicy {
	multiplier := rc.RetryMultiplier
	if multiplier < 1 {
		multiplier = 2.0
	}
	baseDelay := rc.RetryDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	maxDelay := rc.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}
	return &RetryPolicy{
		maxAttempts: rc.RetryAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		multiplier:  multiplier,
		jitter:      0.1,
	}
}

// Execute runs fn with retries for retryable errors. Non-retryable errors
// return immediately.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func(context.Context) error) error {
	return rp.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// ExecuteWithCondition runs fn with retries gated on shouldRetry.
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func(context.Context) error, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt <= rp.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := rp.calculateDelay(attempt, lastErr)
			logger.Get().Debug("retrying request",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
	}

	// The last error keeps its type so callers can still classify it.
	return lastErr
}

// calculateDelay computes the backoff for an attempt. A rate-limit error
// carrying a retry_after detail wins over the exponential schedule.
func (rp *RetryPolicy) calculateDelay(attempt int, err error) time.Duration {
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		if ra, ok := structured.Details["retry_after"].(time.Duration); ok && ra > 0 {
			if ra > rp.maxDelay {
				return rp.maxDelay
			}
			return ra
		}
	}

	delay := float64(rp.baseDelay) * math.Pow(rp.multiplier, float64(attempt-1))
	if delay > float64(rp.maxDelay) {
		delay = float64(rp.maxDelay)
	}

	// Full jitter within +/- jitter fraction.
	jitterRange := delay * rp.jitter
	delay += (rand.Float64()*2 - 1) * jitterRange
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
