// Package resilience provides the bounded retry loop used for remote API calls.
package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig is a fixed-delay retry policy. Rate-limit rejections wait
// RateLimitDelay instead of Delay; both kinds of failure count against the
// same MaxAttempts budget.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first. Default: 5.
	MaxAttempts int

	// Delay is the wait between attempts after a transient failure. Default: 1s.
	Delay time.Duration

	// RateLimitDelay is the wait after a *RateLimitError. Zero means Delay.
	RateLimitDelay time.Duration

	// ShouldRetry overrides the IsTransient check.
	ShouldRetry func(err error) bool

	// OnRetry is called before each wait with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the Katapult policy: five attempts one second
// apart, five seconds after a rate-limit reply.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		Delay:          time.Second,
		RateLimitDelay: 5 * time.Second,
	}
}

// FixedRetryConfig builds a policy from explicit values. Non-positive values
// keep the defaults.
func FixedRetryConfig(maxAttempts int, delay, rateLimitDelay time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if delay > 0 {
		cfg.Delay = delay
	}
	if rateLimitDelay > 0 {
		cfg.RateLimitDelay = rateLimitDelay
	}
	return cfg
}

// FromRetryConfig converts the millisecond and second values of the config
// file into a RetryConfig.
func FromRetryConfig(maxAttempts, delayMs, rateLimitDelaySecs int) RetryConfig {
	return FixedRetryConfig(
		maxAttempts,
		time.Duration(delayMs)*time.Millisecond,
		time.Duration(rateLimitDelaySecs)*time.Second,
	)
}

// Do runs fn until it succeeds, fails permanently, runs out of attempts, or
// ctx is done. The last error is returned unchanged.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.delayFor(err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func (cfg RetryConfig) delayFor(err error) time.Duration {
	if cfg.RateLimitDelay > 0 && IsRateLimited(err) {
		return cfg.RateLimitDelay
	}
	if cfg.Delay < 0 {
		return 0
	}
	return cfg.Delay
}

// RetryLogger returns an OnRetry callback that logs each failed attempt at
// Warn. Rate-limit rejections get their own message.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		if IsRateLimited(err) {
			zap.L().Warn("rate limit exceeded, retrying after delay",
				zap.String("service", service),
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
			)
			return
		}
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
