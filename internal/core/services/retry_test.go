package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestRetryDo_SucceedsFirstTry(t *testing.T) {
	attempts, err := fastRetry(3).Do(context.Background(), func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryDo_TransientThenSuccess(t *testing.T) {
	calls := 0
	attempts, err := fastRetry(5).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: busy", domain.ErrRateLimited)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	attempts, err := fastRetry(3).Do(context.Background(), func(context.Context) error {
		calls++
		return domain.Transient(fmt.Errorf("flaky backend"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
	assert.True(t, domain.IsTransient(err))
}

func TestRetryDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	attempts, err := fastRetry(5).Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("%w: bad request", domain.ErrInvalidInput)
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Minute,
		MaxDelay:     time.Minute,
	}

	calls := 0
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		attempts, err = policy.Do(ctx, func(context.Context) error {
			calls++
			return domain.Transient(fmt.Errorf("down"))
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, attempts, 5)
	assert.Equal(t, attempts, calls)
}

func TestRetryDo_ZeroValuePolicySingleAttempt(t *testing.T) {
	calls := 0
	attempts, err := (RetryPolicy{}).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}
