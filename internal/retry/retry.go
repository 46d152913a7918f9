// Package retry wraps transient remote writes in exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Do calls fn up to attempts times. After each failure it sleeps
// delay + rand(0, delay), then doubles delay. The last error is returned when
// attempts are exhausted. attempts <= 0 degenerates to one bare, unretried
// call. Cancelling ctx interrupts the sleep and returns ctx.Err().
func Do(ctx context.Context, fn func(ctx context.Context) error, attempts int, initialDelay time.Duration) error {
	attempt := 0
	delay := initialDelay
	for attempt < attempts {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		attempt++
		if attempt >= attempts {
			return err
		}
		jitter := time.Duration(rand.Int63n(int64(delay) + 1))
		if err := sleep(ctx, delay+jitter); err != nil {
			return err
		}
		delay *= 2
	}
	return fn(ctx)
}

// sleep is a variable so tests can observe backoff without waiting it out.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
