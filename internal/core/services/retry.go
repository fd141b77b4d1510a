package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// RetryPolicy controls backoff for transient failures against external,
// rate-limited APIs.
type RetryPolicy struct {
	// MaxAttempts is the total attempt ceiling, including the first try.
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy matches typical external-API behaviour: three
// attempts with 500ms initial backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
	}
}

// Do runs op, retrying with exponential backoff and jitter while the
// error is transient. Permanent errors return immediately. Returns the
// number of attempts made alongside the final error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	attempts := 0
	delay := p.InitialDelay

	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return attempts, nil
		}
		if !domain.IsTransient(err) || attempts >= p.MaxAttempts {
			return attempts, err
		}

		// Full jitter: sleep a random fraction of the current delay to
		// avoid thundering-herd retries against a rate-limited API.
		sleep := time.Duration(rand.Int63n(int64(delay) + 1))
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(sleep):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
