package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that fails twice then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: succeeds on the third attempt
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a function that always fails
	attempts := 0
	sentinel := errors.New("persistent error")

	// When: retrying with two retries
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return sentinel
	})

	// Then: the last error is wrapped after 3 attempts
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ShouldRetryStopsEarly(t *testing.T) {
	// Given: a policy that never retries input errors
	cfg := fastRetryConfig()
	cfg.ShouldRetry = func(err error) bool { return !IsInput(err) }
	attempts := 0

	// When: the function returns an input error
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return InputError("bad text", nil)
	})

	// Then: only one attempt is made
	assert.True(t, IsInput(err))
	assert.Equal(t, 1, attempts)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetryConfig(), func() error { calls++; return nil })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestBackoff_GrowsToCap(t *testing.T) {
	b := newBackoff(RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond, Multiplier: 2})

	got := []time.Duration{b.next(), b.next(), b.next(), b.next()}

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}, got)
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	b := newBackoff(RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 1, Jitter: true})

	for i := 0; i < 50; i++ {
		d := b.next()
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 100*time.Millisecond)
	}
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(), func() ([]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("timeout")
		}
		return []float32{1, 2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
}
