package pattern

import (
	"math"
	"strings"

	"github.com/Veraticus/txmatch/internal/model"
)

// Scorer boosts used by NewAccountScorer.
const (
	AccountNameBoost   = 0.10
	AccountNumberBoost = 0.05
)

// BaseScore returns the rule's declared confidence clamped to [0,1].
func BaseScore(rule model.Rule, _ *model.Transaction) float64 {
	return clamp(rule.Confidence)
}

// NewAccountScorer returns a ScoreFunc that starts from the rule's confidence
// and boosts it when the pattern names the target account: by AccountNameBoost
// when the pattern equals the account name and the whole description is that
// name, or by AccountNumberBoost when the pattern is the account number and it
// appears in the description.
func NewAccountScorer(chart *model.ChartOfAccounts) ScoreFunc {
	return func(rule model.Rule, txn *model.Transaction) float64 {
		confidence := rule.Confidence
		acct, ok := chart.Lookup(rule.AccountNumber)
		if !ok || txn == nil {
			return clamp(confidence)
		}

		pattern := strings.TrimSpace(rule.Pattern)
		description := strings.TrimSpace(txn.Description)

		switch {
		case strings.EqualFold(pattern, acct.Name) && strings.EqualFold(description, pattern):
			confidence += AccountNameBoost
		case pattern == acct.Number && strings.Contains(description, pattern):
			confidence += AccountNumberBoost
		}

		return clamp(confidence)
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
