package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// Config holds retry configuration
type Config struct {
	MaxRetries uint
	BaseDelay  time.Duration
}

// DefaultConfig returns the retry configuration used for bank transfers:
// up to 3 retries after the initial attempt, exponential backoff on a
// 600ms base.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  600 * time.Millisecond,
	}
}

// Backoff returns the wait before attempt n (0-indexed): (2^n - 1) * base.
// Attempt 0 is the initial call and waits nothing.
func Backoff(n uint, base time.Duration) time.Duration {
	return time.Duration((1<<n)-1) * base
}

// Do executes fn with exponential backoff retry. Only errors for which
// retryable returns true are retried; the rest abort immediately.
func Do(ctx context.Context, cfg Config, retryable func(error) bool, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetries+1),
		retry.RetryIf(retryable),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			// n is the attempt that just failed; the next attempt is n+1.
			return Backoff(n+1, cfg.BaseDelay)
		}),
		retry.LastErrorOnly(true),
	)
}

// DoWithResult executes fn with exponential backoff retry and returns a result
func DoWithResult[T any](ctx context.Context, cfg Config, retryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, retryable, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
