package database

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/appri/incidentdb/internal/debug"
)

// RetryConfig holds the backoff used while establishing connections.
// Statements are never retried.
type RetryConfig struct {
	MaxAttempts   int           // Maximum number of attempts
	InitialDelay  time.Duration // Delay before the second attempt
	MaxDelay      time.Duration // Upper bound for any delay
	BackoffFactor float64       // Exponential backoff multiplier
	Jitter        bool          // Add ±25% randomness to delays
}

// DefaultRetryConfig returns the default connect backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Retry runs fn until it succeeds, attempts run out or ctx is done.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter && delay > 0 {
			spread := delay / 4
			if spread > 0 {
				wait = delay - spread + time.Duration(rand.Int63n(int64(spread)*2))
			}
		}
		debug.Warn("connect attempt failed", "attempt", attempt, "retry_in", wait, "error", err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
