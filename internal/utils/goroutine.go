package utils

import (
	"context"
	"errors"
)

// RunGoroutine runs fn in a goroutine, passing it ctx.
// The returned channel is closed when fn returns. If fn failed with anything other than
// a cancellation error (context.Canceled or context.DeadlineExceeded) that error is sent
// on the channel first.
func RunGoroutine(ctx context.Context, fn func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)

	go func() {
		defer close(done)

		if err := fn(ctx); err != nil && !isCancellation(err) {
			done <- err
		}
	}()

	return done
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
