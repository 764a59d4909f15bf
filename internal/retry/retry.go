// Package retry runs fallible calls with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultDelay = 100 * time.Millisecond

// Do calls fn until it succeeds, maxRetries retries have failed or ctx is
// done. The delay starts at baseDelay and doubles after every failure.
func Do(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	return DoWithClock(ctx, clockwork.NewRealClock(), maxRetries, baseDelay, fn)
}

// DoWithClock is Do with an explicit clock.
func DoWithClock(ctx context.Context, clock clockwork.Clock, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = defaultDelay
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}

		delay *= 2
	}
}
