package session

import (
	"context"
	"fmt"
	"time"
)

// runBounded runs fn and returns when it finishes or when timeout elapses,
// whichever comes first. A fn that ignores its context keeps running in the
// background; the caller is never held past the deadline.
func runBounded(parent context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
