package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLockRetry(t *testing.T) {
	ctx := context.Background()
	contention := fmt.Errorf("%w: lock timeout", ErrLockContention)

	t.Run("succeeds after contention", func(t *testing.T) {
		calls := 0
		err := WithLockRetry(ctx, 3, func() error {
			calls++
			if calls < 3 {
				return contention
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := WithLockRetry(ctx, 2, func() error {
			calls++
			return contention
		})
		assert.ErrorIs(t, err, ErrLockContention)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := WithLockRetry(ctx, 5, func() error {
			calls++
			return &InsufficientFundsError{Required: 5, Available: 1}
		})
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, 1, calls)
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		calls := 0
		err := WithLockRetry(ctx, 0, func() error {
			calls++
			return contention
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		calls := 0
		err := WithLockRetry(cctx, 5, func() error {
			calls++
			return contention
		})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrLockContention))
		assert.Equal(t, 1, calls)
	})
}
