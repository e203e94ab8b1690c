package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pausewise/pausewise/internal/service"
)

func TestUserError(t *testing.T) {
	wrapped := NewUserError("friction level out of range", ErrInvalidConfig)
	assert.Equal(t, "friction level out of range: invalid configuration", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrInvalidConfig)

	userErr, ok := AsUserError(fmt.Errorf("saving settings: %w", wrapped))
	require.True(t, ok)
	assert.Equal(t, "friction level out of range", userErr.UserMessage)

	_, ok = AsUserError(errors.New("plain"))
	assert.False(t, ok)

	bare := NewUserError("nothing to wrap", nil)
	assert.Equal(t, "nothing to wrap", bare.Error())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("event lookup: %w", ErrNotFound)))
	assert.False(t, IsNotFound(ErrStorageFailure))
	assert.False(t, IsNotFound(nil))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unavailable", err: ErrRemoteUnavailable, want: true},
		{name: "timeout", err: ErrRemoteTimeout, want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "unauthorized", err: ErrUnauthorized, want: false},
		{name: "rate limit", err: ErrRateLimit, want: false},
		{name: "wrapped retryable", err: &RetryableError{Err: errors.New("flaky"), Retryable: true}, want: true},
		{name: "wrapped terminal", err: &RetryableError{Err: errors.New("broken"), Retryable: false}, want: false},
		{name: "unknown", err: errors.New("mystery"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func fastRetry(attempts int) service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return ErrRemoteUnavailable
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrRemoteUnavailable
	}, fastRetry(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryFailsFast(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "rate limit", err: ErrRateLimit},
		{name: "unauthorized", err: ErrUnauthorized},
		{name: "marked non-retryable", err: &RetryableError{Err: errors.New("broken"), Retryable: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithRetry(context.Background(), func() error {
				calls++
				return tt.err
			}, fastRetry(5))

			require.Error(t, err)
			assert.Equal(t, 1, calls, "no second attempt")
			assert.NotErrorIs(t, err, ErrMaxRetries)
		})
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return ErrRemoteUnavailable
	}, fastRetry(5))

	assert.ErrorIs(t, err, context.Canceled)
}
