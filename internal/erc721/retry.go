package erc721

import (
	"context"
	"time"
)

// withTimeout runs fn and bounds the wait for its result. On expiry the
// in-flight call keeps running in the background; its eventual result is
// disregarded rather than transport-aborted.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		ch <- result{value: value, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, ErrFetchTimeout
	case res := <-ch:
		return res.value, res.err
	}
}

// withRetry invokes fn up to attempts times with no backoff, returning the
// last error when every attempt fails. The attempt number starts at 1.
func withRetry(attempts int, fn func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
	}
	return err
}
