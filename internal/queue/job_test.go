package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{name: "first retry", attempt: 1, want: 60 * time.Second},
		{name: "second retry", attempt: 2, want: 120 * time.Second},
		{name: "third retry", attempt: 3, want: 240 * time.Second},
		{name: "capped at max backoff", attempt: 20, want: 30 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.NextDelay(tt.attempt))
		})
	}
}

func TestRetryPolicy_NextDelay_CustomMultiplier(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		Multiplier:     3.0,
		MaxBackoff:     time.Hour,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 3*time.Second, policy.NextDelay(2))
	assert.Equal(t, 9*time.Second, policy.NextDelay(3))
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("smtp exploded")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "retryable wrapper", err: NewRetryableError(base), want: true},
		{name: "non-retryable wrapper", err: NewNonRetryableError(base), want: false},
		{name: "unwrapped error defaults to retryable", err: base, want: true},
		{name: "wrapped deeper in a chain", err: errors.Join(errors.New("outer"), NewNonRetryableError(base)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestRetryableError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := NewRetryableError(base)

	assert.Equal(t, "boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, base))
}
