// Package pattern implements rule- and mapping-based transaction matching.
package pattern

import (
	"github.com/Veraticus/txmatch/internal/model"
)

// ScoreFunc computes the confidence for a rule that matched a transaction.
// Implementations must be deterministic and free of side effects.
type ScoreFunc func(rule model.Rule, txn *model.Transaction) float64

// Rule is an alias to the model.Rule type for convenience.
type Rule = model.Rule
