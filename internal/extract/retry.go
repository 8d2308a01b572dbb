package extract

import (
	"context"
	"log/slog"
	"time"
)

// SleepFunc waits for d or until ctx is done. Tests inject a recorder here.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Wait is the default SleepFunc.
func Wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Retry runs op up to attempts times, waiting a fixed backoff between
// attempts. Every failure counts as recoverable; the wrapper never
// distinguishes transport errors from parse errors, matching the policy of
// the extraction layer it serves. On exhaustion it returns the last error.
// Context cancellation aborts immediately with ctx.Err().
func Retry[T any](ctx context.Context, attempts int, backoff time.Duration, sleep SleepFunc, logger *slog.Logger, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := op()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < attempts {
			logger.Warn("attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", attempts),
				slog.String("error", err.Error()))
			if serr := sleep(ctx, backoff); serr != nil {
				return zero, serr
			}
		} else {
			logger.Warn("retry budget exhausted",
				slog.Int("attempts", attempts),
				slog.String("error", err.Error()))
		}
	}

	return zero, lastErr
}
