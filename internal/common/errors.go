// Package common holds the sentinel errors, retry helper and logging setup
// shared by every txmatch package.
package common

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores for a missing rule, mapping or run.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedFormat is returned for input or output files of an unknown type.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoTransactions is returned when an input yields nothing to match.
	ErrNoTransactions = errors.New("no transactions to match")
	// ErrProviderUnavailable is returned when the text-generation service fails on its side.
	ErrProviderUnavailable = errors.New("llm provider unavailable")

	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError carries a message meant for the terminal alongside its cause.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.UserMessage
	}
	return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError wraps err with a message for the user.
func NewUserError(message string, err error) error {
	return &UserError{UserMessage: message, Err: err}
}

// IsRetryable reports whether another attempt could succeed. An explicit
// RetryableError decides; otherwise rate limits, provider failures and
// deadlines are transient.
func IsRetryable(err error) bool {
	var re *RetryableError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.As(err, &re):
		return re.Retryable
	default:
		return errors.Is(err, ErrRateLimit) ||
			errors.Is(err, ErrProviderUnavailable) ||
			errors.Is(err, context.DeadlineExceeded)
	}
}
