package utils

import (
	"context"
	"math"
	"math/rand"
	"time"

	apperrors "marketbrief/internal/errors"
)

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // exponential backoff base
	MaxJitter  time.Duration // uniform jitter added to each delay
	// Transient reports whether an error should be retried. Defaults to
	// apperrors.IsTransient.
	Transient func(error) bool
	// Sleep is overridable for tests. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxJitter:  time.Second,
	}
}

func (cfg RetryConfig) normalized() RetryConfig {
	if cfg.Transient == nil {
		cfg.Transient = apperrors.IsTransient
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	if cfg.MaxJitter <= 0 {
		cfg.MaxJitter = time.Second
	}
	return cfg
}

// Retry executes fn, retrying transient failures with exponential backoff.
// Non-transient errors fail immediately with zero retries. When every attempt
// fails, a RetryExhaustedError wrapping the last error is returned; callers
// convert it into a provider failure rather than letting it escape.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes fn with the same policy as Retry and returns its
// result. Backoff sleeps block the calling timeline; there is no separate
// scheduler.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.normalized()

	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.Transient(err) {
			return zero, err
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			cfg.Sleep(Backoff(attempt, cfg.BaseDelay, cfg.MaxJitter))
		}
	}

	return zero, &apperrors.RetryExhaustedError{Attempts: cfg.MaxRetries + 1, LastErr: lastErr}
}

// Backoff computes the delay for a given attempt:
// base * 2^attempt plus uniform jitter in [0, maxJitter).
func Backoff(attempt int, base, maxJitter time.Duration) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt))
	jitter := rand.Int63n(int64(maxJitter))
	return time.Duration(delay) + time.Duration(jitter)
}
