package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("connection refused")

// fakeClock lets tests move the breaker past its cooldown.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker("ollama", WithMaxFailures(threshold), WithResetTimeout(time.Minute))
	cb.now = clock.now
	return cb, clock
}

func fail() error { return errBackend }
func ok() error   { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errBackend)
		assert.Equal(t, StateClosed, cb.State())
	}
	assert.ErrorIs(t, cb.Execute(fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2)

	_ = cb.Execute(fail)
	require.NoError(t, cb.Execute(ok))
	_ = cb.Execute(fail)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	tests := []struct {
		name  string
		trial func() error
		want  State
	}{
		{"trial succeeds", ok, StateClosed},
		{"trial fails", fail, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: an open breaker past its cooldown
			cb, clock := newTestBreaker(1)
			_ = cb.Execute(fail)
			clock.advance(time.Minute)
			require.Equal(t, StateHalfOpen, cb.State())

			// When: one trial call runs
			_ = cb.Execute(tt.trial)

			// Then: the trial decides the next state
			assert.Equal(t, tt.want, cb.State())
		})
	}
}

func TestCircuitBreaker_SingleTrial(t *testing.T) {
	cb, clock := newTestBreaker(1)
	_ = cb.Execute(fail)
	clock.advance(time.Minute)

	err := cb.Execute(func() error {
		// A concurrent caller is turned away while the trial call runs.
		assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CancellationNotCounted(t *testing.T) {
	cb, _ := newTestBreaker(1)

	err := cb.Execute(func() error { return context.Canceled })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	_ = cb.Execute(fail)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "ollama", cb.Name())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
