package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit marks a quota error from a remote API. The next attempt
	// waits the full MaxDelay.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries is returned once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// Retry defaults applied to zero fields of RetryOptions.
const (
	DefaultRetryAttempts   = 3
	DefaultRetryDelay      = 100 * time.Millisecond
	DefaultRetryMaxDelay   = 30 * time.Second
	DefaultRetryMultiplier = 2.0
)

// RetryOptions configures exponential backoff for one remote call.
type RetryOptions struct {
	Logger       *slog.Logger
	Operation    string
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultRetryAttempts
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultRetryDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultRetryMaxDelay
	}
	if o.Multiplier <= 0 {
		o.Multiplier = DefaultRetryMultiplier
	}
	return o
}

// backoff returns the wait after a failed attempt and the delay to use for
// the one after it.
func (o RetryOptions) backoff(delay time.Duration, err error) (wait, next time.Duration) {
	wait = delay
	if errors.Is(err, ErrRateLimit) {
		wait = o.MaxDelay
	}
	next = min(time.Duration(float64(delay)*o.Multiplier), o.MaxDelay)
	return wait, next
}

// RetryableError tags an error with whether it is worth another attempt.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying. WithRetry returns the
// unwrapped err as soon as it sees it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: false}
}

// IsRetryable reports whether err is a quota error, a timeout, or an error
// explicitly tagged as retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// WithRetry calls operation until it succeeds, returns a Permanent error,
// runs out of attempts or ctx is done.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.withDefaults()
	logger := opts.Logger
	if opts.Operation != "" {
		logger = logger.With("operation", opts.Operation)
	}

	delay := opts.InitialDelay
	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var re *RetryableError
		if errors.As(err, &re) && !re.Retryable {
			return re.Err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		var wait time.Duration
		wait, delay = opts.backoff(delay, err)
		logger.Warn("Remote call failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
