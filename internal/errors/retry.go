package errors

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryConfig is an exponential backoff policy.
type RetryConfig struct {
	// MaxRetries counts attempts after the first one.
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter draws each wait from [delay/2, delay).
	Jitter bool
	// ShouldRetry filters errors worth another attempt. Nil retries all.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig is the policy for Ollama embedding requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

type backoff struct {
	cfg   RetryConfig
	delay time.Duration
}

func newBackoff(cfg RetryConfig) *backoff {
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// next returns the wait before the coming retry and advances the delay.
func (b *backoff) next() time.Duration {
	wait := b.delay
	if half := wait - wait/2; b.cfg.Jitter && half > 0 {
		wait = wait/2 + time.Duration(rand.Int64N(int64(half)))
	}
	b.delay = min(time.Duration(float64(b.delay)*b.cfg.Multiplier), b.cfg.MaxDelay)
	return wait
}

// Retry runs fn until it succeeds, returns an error ShouldRetry rejects, or
// runs out of retries. A done context stops it before the next attempt.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that produce a value.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	b := newBackoff(cfg)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn()
		switch {
		case err == nil:
			return v, nil
		case cfg.ShouldRetry != nil && !cfg.ShouldRetry(err):
			return zero, err
		case attempt >= cfg.MaxRetries:
			return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, err)
		}

		t := time.NewTimer(b.next())
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}
