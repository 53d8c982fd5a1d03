// Package storage loads the chart of accounts and persists rules, mappings and
// run history.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/txmatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid match run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks a run and its results before they are written.
func validateRun(run *model.MatchRun, results []model.MatchResult) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}
	if !model.ValidConfidence(run.Threshold) {
		return fmt.Errorf("%w: threshold %.2f outside [0,1]", ErrInvalidRun, run.Threshold)
	}
	for i, result := range results {
		if result.TransactionID == "" {
			return fmt.Errorf("%w: result %d has no transaction id", ErrInvalidRun, i)
		}
	}
	return nil
}
