// Package retry runs a function repeatedly with capped exponential
// backoff. Used for best-effort writes where giving up is acceptable
// but a transient hiccup should not lose data.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Do invokes fn until it succeeds, the attempt budget is spent, or ctx
// is cancelled. The delay between attempts starts at base, doubles each
// round, and carries up to 25% random jitter so competing retriers
// spread out. The last error from fn is returned when all attempts fail.
func Do(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(base << i)):
		}
	}
	return err
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d / 4)
	return d - time.Duration(spread/2) + time.Duration(rand.Int64N(spread+1))
}
