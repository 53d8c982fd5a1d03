package pattern

import (
	"sort"

	"github.com/Veraticus/txmatch/internal/model"
)

// MappingSuggestion proposes a new mapping learned from confident matches.
type MappingSuggestion struct {
	Description   string
	AccountNumber string
	Confidence    float64 // lowest confidence among the supporting transactions
	Count         int
}

// SuggestMappings proposes mappings for descriptions the fallback pass matched
// at or above minConfidence. Descriptions already covered by the mapping, and
// descriptions matched to more than one account, are left out. Results are
// sorted by description.
func (m *RuleMatcher) SuggestMappings(transactions []*model.Transaction, minConfidence float64) []MappingSuggestion {
	byKey := make(map[string]*MappingSuggestion)
	conflicted := make(map[string]bool)

	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		current, ok := txn.CurrentMatch()
		if !ok || current.Source != model.SourceLLM || current.Confidence < minConfidence {
			continue
		}

		key := model.NormalizeDescription(txn.Description)
		if key == "" || conflicted[key] {
			continue
		}
		if _, exists := m.exact[key]; exists {
			continue
		}

		existing, seen := byKey[key]
		switch {
		case !seen:
			byKey[key] = &MappingSuggestion{
				Description:   key,
				AccountNumber: current.Account.Number,
				Confidence:    current.Confidence,
				Count:         1,
			}
		case existing.AccountNumber != current.Account.Number:
			conflicted[key] = true
			delete(byKey, key)
		default:
			existing.Count++
			existing.Confidence = min(existing.Confidence, current.Confidence)
		}
	}

	result := make([]MappingSuggestion, 0, len(byKey))
	for _, s := range byKey {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Description < result[j].Description
	})
	return result
}
