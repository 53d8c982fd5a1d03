package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit is returned by a provider that asked us to slow down.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries wraps the last error once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions bounds the attempts and backoff of WithRetry. Zero fields take
// the defaults: 3 attempts, 100ms doubling up to 30s.
type RetryOptions struct {
	Logger       *slog.Logger
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func (o RetryOptions) normalized() RetryOptions {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier < 1 {
		o.Multiplier = 2
	}
	return o
}

func (o RetryOptions) grow(current time.Duration) time.Duration {
	return min(time.Duration(float64(current)*o.Multiplier), o.MaxDelay)
}

// RetryableError overrides the retry decision for the error it wraps.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// Permanent marks err so WithRetry returns it without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// WithRetry calls op until it succeeds, returns an error IsRetryable rejects,
// the context ends, or the attempts run out.
func WithRetry(ctx context.Context, op func() error, opts RetryOptions) error {
	opts = opts.normalized()

	var err error
	wait := opts.InitialDelay
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}
		// Rate limits back off to the ceiling straight away.
		if errors.Is(err, ErrRateLimit) {
			wait = opts.MaxDelay
		}

		opts.Logger.Warn("Attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"wait", wait,
			"error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		wait = opts.grow(wait)
	}
}
