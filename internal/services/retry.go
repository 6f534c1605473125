package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WithLockRetry runs op and retries it up to attempts more times while it
// fails with ErrLockContention. Any other error stops immediately. Every
// attempt must own its own transaction.
func WithLockRetry(ctx context.Context, attempts int, op func() error) error {
	if attempts < 0 {
		attempts = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.5

	return backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, ErrLockContention) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx))
}
