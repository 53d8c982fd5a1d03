// Package engine orchestrates the matching passes over a batch of transactions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/txmatch/internal/model"
)

// DefaultConfidenceThreshold is the confidence below which a transaction is
// handed to the fallback passes.
const DefaultConfidenceThreshold = 0.80

// Engine configuration errors.
var (
	ErrNoPrimaryMatcher = errors.New("no primary matcher configured")
	ErrInvalidThreshold = errors.New("confidence threshold must be within [0,1]")
)

// MatchingEngine runs a primary matcher over every transaction and then each
// fallback matcher over the transactions still below the threshold.
type MatchingEngine struct {
	primary   Matcher
	logger    *slog.Logger
	fallbacks []Matcher
	threshold float64
}

// Config holds configuration options for the matching engine.
type Config struct {
	Logger              *slog.Logger
	ConfidenceThreshold float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// New creates a matching engine with the default configuration.
func New(primary Matcher, fallbacks ...Matcher) (*MatchingEngine, error) {
	return NewWithConfig(DefaultConfig(), primary, fallbacks...)
}

// NewWithConfig creates a matching engine with custom configuration.
func NewWithConfig(config Config, primary Matcher, fallbacks ...Matcher) (*MatchingEngine, error) {
	if primary == nil {
		return nil, ErrNoPrimaryMatcher
	}
	if err := validateThreshold(config.ConfidenceThreshold); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &MatchingEngine{
		primary:   primary,
		threshold: config.ConfidenceThreshold,
		logger:    logger,
	}
	for _, m := range fallbacks {
		e.AddFallback(m)
	}
	return e, nil
}

// AddFallback appends a fallback pass. Passes run in the order added.
func (e *MatchingEngine) AddFallback(m Matcher) {
	if m != nil {
		e.fallbacks = append(e.fallbacks, m)
	}
}

// Threshold returns the configured confidence threshold.
func (e *MatchingEngine) Threshold() float64 {
	return e.threshold
}

// Process runs the passes with the configured threshold.
func (e *MatchingEngine) Process(ctx context.Context, transactions []*model.Transaction) ([]*model.Transaction, error) {
	return e.ProcessTransactions(ctx, transactions, e.threshold)
}

// ProcessTransactions runs the primary pass over all transactions and each
// fallback pass over the transactions whose confidence is below threshold,
// recomputed before every fallback pass. The input slice is always returned,
// mutated in place, even when an error is reported. A failing pass is logged
// and the run goes on; only a cancelled context stops it early, keeping the
// matches already made.
func (e *MatchingEngine) ProcessTransactions(ctx context.Context, transactions []*model.Transaction, threshold float64) ([]*model.Transaction, error) {
	if err := validateThreshold(threshold); err != nil {
		return transactions, err
	}

	start := time.Now()
	e.logger.Info("Starting matching run",
		"transactions", len(transactions),
		"threshold", threshold,
		"fallback_passes", len(e.fallbacks))

	if err := e.primary.Process(ctx, transactions); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.logger.Warn("Primary pass interrupted, keeping partial results",
				"matcher", e.primary.Name(),
				"error", err)
			return transactions, ctxErr
		}
		e.logger.Error("Primary pass failed, continuing with fallbacks",
			"matcher", e.primary.Name(),
			"error", err)
	}

	for _, fallback := range e.fallbacks {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("Matching run cancelled, keeping partial results", "error", err)
			return transactions, err
		}

		pending := FilterBelowThreshold(transactions, threshold)
		if len(pending) == 0 {
			e.logger.Debug("No transactions below threshold", "matcher", fallback.Name())
			break
		}

		e.logger.Info("Running fallback pass",
			"matcher", fallback.Name(),
			"transactions", len(pending))

		if err := fallback.Process(ctx, pending); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				e.logger.Warn("Fallback pass interrupted, keeping partial results",
					"matcher", fallback.Name(),
					"error", err)
				return transactions, ctxErr
			}
			e.logger.Warn("Fallback pass failed, continuing",
				"matcher", fallback.Name(),
				"error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return transactions, err
	}

	summary := Summarize(transactions)
	e.logger.Info("Matching run complete",
		"duration", time.Since(start),
		"rule", summary.RuleMatched,
		"llm", summary.LLMMatched,
		"unmatched", summary.Unmatched)

	return transactions, nil
}

// NeedsFallback reports whether txn is unmatched or below threshold.
func NeedsFallback(txn *model.Transaction, threshold float64) bool {
	if !txn.IsMatched() {
		return true
	}
	return txn.Confidence() < threshold
}

// FilterBelowThreshold returns the transactions that need a fallback pass,
// preserving order. Nil entries are dropped.
func FilterBelowThreshold(transactions []*model.Transaction, threshold float64) []*model.Transaction {
	var result []*model.Transaction
	for _, txn := range transactions {
		if txn != nil && NeedsFallback(txn, threshold) {
			result = append(result, txn)
		}
	}
	return result
}

func validateThreshold(threshold float64) error {
	if !model.ValidConfidence(threshold) {
		return fmt.Errorf("%w: got %.2f", ErrInvalidThreshold, threshold)
	}
	return nil
}
