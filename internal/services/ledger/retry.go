package ledger

import (
	"context"
	"errors"
	"time"

	"aurum/internal/repositories"
)

// withRetry re-runs fn while it reports a wallet version conflict, waiting
// attempt*backoff between tries. Any other error, including success, passes
// through untouched. After maxAttempts conflicts it surfaces
// ErrConcurrentModification.
//
// The loop assumes per-wallet contention is low (one user rarely races
// against themselves), which keeps the expected retry count near zero.
func withRetry(ctx context.Context, maxAttempts int, backoff time.Duration, onRetry func(attempt int), fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return err
		}
		if attempt >= maxAttempts {
			return ErrConcurrentModification
		}
		if onRetry != nil {
			onRetry(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
}
