package engine

import "github.com/Veraticus/txmatch/internal/model"

// Summary counts the outcome of a matching run.
type Summary struct {
	Total       int
	RuleMatched int
	LLMMatched  int
	Unmatched   int
	NeedsReview int
}

// Summarize tallies the current match source of each transaction.
func Summarize(transactions []*model.Transaction) Summary {
	var s Summary
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		s.Total++
		switch txn.Source() {
		case model.SourceRule:
			s.RuleMatched++
		case model.SourceLLM:
			s.LLMMatched++
		default:
			s.Unmatched++
		}
		if txn.NeedsReview() {
			s.NeedsReview++
		}
	}
	return s
}

// MatchRate returns the share of transactions with any match.
func (s Summary) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.RuleMatched+s.LLMMatched) / float64(s.Total)
}
