package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MatchSource tags which pass produced a match.
type MatchSource string

// Match source constants.
const (
	SourceNone MatchSource = "NONE"
	SourceRule MatchSource = "RULE"
	SourceLLM  MatchSource = "LLM"
)

// Review thresholds used by NeedsReview.
const (
	ReviewConfidenceFloor = 0.70
	ReviewAlternativeGap  = 0.10
)

// Match is one candidate account considered for a transaction.
type Match struct {
	Account    *Account
	Source     MatchSource
	Confidence float64
}

// Transaction represents a single bank transaction and the matches considered for it.
// Match state is only changed through AddMatch.
type Transaction struct {
	Date        time.Time
	PostDate    time.Time
	ID          string
	Description string // Raw transaction description
	Category    string // Category hint from the source file
	Type        string // Sale, Payment, Return, DEBIT, CHECK...
	Memo        string
	Amount      decimal.Decimal

	matches []Match
	current int
}

// NewTransaction creates an unmatched transaction.
func NewTransaction(id, description string, amount decimal.Decimal, date time.Time) *Transaction {
	return &Transaction{
		ID:          id,
		Description: description,
		Amount:      amount,
		Date:        date,
		current:     -1,
	}
}

// AddMatch records a candidate match. The candidate is always appended to the
// history; it becomes the current match when there is no current match and the
// confidence is non-negative, or when the confidence strictly exceeds the
// current one. Ties keep the earlier match. It reports whether the candidate
// was promoted. A nil account is ignored.
func (t *Transaction) AddMatch(account *Account, confidence float64, source MatchSource) bool {
	if account == nil {
		return false
	}

	if len(t.matches) == 0 {
		t.current = -1
	}

	t.matches = append(t.matches, Match{
		Account:    account,
		Confidence: confidence,
		Source:     source,
	})

	idx := len(t.matches) - 1
	if t.current < 0 {
		if confidence >= 0 {
			t.current = idx
			return true
		}
		return false
	}

	if confidence > t.matches[t.current].Confidence {
		t.current = idx
		return true
	}
	return false
}

// CurrentMatch returns the best match added so far.
func (t *Transaction) CurrentMatch() (Match, bool) {
	if len(t.matches) == 0 || t.current < 0 {
		return Match{Source: SourceNone}, false
	}
	return t.matches[t.current], true
}

// IsMatched reports whether the transaction has a current match.
func (t *Transaction) IsMatched() bool {
	_, ok := t.CurrentMatch()
	return ok
}

// Confidence returns the current match confidence, or 0 when unmatched.
func (t *Transaction) Confidence() float64 {
	m, ok := t.CurrentMatch()
	if !ok {
		return 0
	}
	return m.Confidence
}

// Source returns the provenance of the current match.
func (t *Transaction) Source() MatchSource {
	m, ok := t.CurrentMatch()
	if !ok {
		return SourceNone
	}
	return m.Source
}

// Account returns the currently matched account, or nil.
func (t *Transaction) Account() *Account {
	m, ok := t.CurrentMatch()
	if !ok {
		return nil
	}
	return m.Account
}

// AlternativeMatches returns every match added, in the order they were considered.
func (t *Transaction) AlternativeMatches() []Match {
	result := make([]Match, len(t.matches))
	copy(result, t.matches)
	return result
}

// OtherMatches returns the considered matches excluding the current one.
func (t *Transaction) OtherMatches() []Match {
	var result []Match
	for i, m := range t.matches {
		if i == t.current && len(t.matches) > 0 {
			continue
		}
		result = append(result, m)
	}
	return result
}

// NeedsReview reports whether a human should look at the transaction: it is
// unmatched, its confidence is below ReviewConfidenceFloor, or a candidate for
// a different account came within ReviewAlternativeGap of the current match.
func (t *Transaction) NeedsReview() bool {
	current, ok := t.CurrentMatch()
	if !ok {
		return true
	}
	if current.Confidence < ReviewConfidenceFloor {
		return true
	}
	for _, m := range t.OtherMatches() {
		if m.Account.Number == current.Account.Number {
			continue
		}
		if m.Confidence > current.Confidence-ReviewAlternativeGap {
			return true
		}
	}
	return false
}

// GenerateHash creates a stable hash for duplicate detection and caching.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		NormalizeDescription(t.Description))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
