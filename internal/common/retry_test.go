package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return &RetryableError{Err: errors.New("transient"), Retryable: true}
			}
			return nil
		}, opts)

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable error propagates immediately", func(t *testing.T) {
		calls := 0
		permanent := errors.New("bad request")
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: permanent, Retryable: false}
		}, opts)

		require.Error(t, err)
		assert.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts return ErrMaxRetries", func(t *testing.T) {
		calls := 0
		err := WithRetry(context.Background(), func() error {
			calls++
			return &RetryableError{Err: errors.New("still down"), Retryable: true}
		}, opts)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, 3, calls)
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			cancel()
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}, RetryOptions{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("delays grow exponentially", func(t *testing.T) {
		start := time.Now()
		var stamps []time.Duration
		_ = WithRetry(context.Background(), func() error {
			stamps = append(stamps, time.Since(start))
			return &RetryableError{Err: errors.New("transient"), Retryable: true}
		}, RetryOptions{MaxAttempts: 3, InitialDelay: 20 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2.0})

		require.Len(t, stamps, 3)
		// First retry waits ~base, second ~2*base.
		assert.GreaterOrEqual(t, stamps[1]-stamps[0], 20*time.Millisecond)
		assert.GreaterOrEqual(t, stamps[2]-stamps[1], 40*time.Millisecond)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
