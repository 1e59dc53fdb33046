package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"aurum/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("returns immediately on success", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, 3, time.Microsecond, nil, func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries only version conflicts", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := withRetry(ctx, 3, time.Microsecond, nil, func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers from transient conflicts", func(t *testing.T) {
		calls := 0
		retries := 0
		err := withRetry(ctx, 3, time.Microsecond, func(int) { retries++ }, func() error {
			calls++
			if calls < 3 {
				return repositories.ErrVersionConflict
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, 3, time.Microsecond, nil, func() error {
			calls++
			return repositories.ErrVersionConflict
		})
		assert.ErrorIs(t, err, ErrConcurrentModification)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := withRetry(cancelled, 5, time.Minute, nil, func() error {
			return repositories.ErrVersionConflict
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("treats zero attempts as one", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, 0, time.Microsecond, nil, func() error {
			calls++
			return repositories.ErrVersionConflict
		})
		assert.ErrorIs(t, err, ErrConcurrentModification)
		assert.Equal(t, 1, calls)
	})
}
