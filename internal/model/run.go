package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchRun is the persisted summary of one matching run.
type MatchRun struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ID          string    `json:"id"`
	Input       string    `json:"input"`
	Threshold   float64   `json:"threshold"`
	Total       int       `json:"total"`
	RuleMatched int       `json:"rule_matched"`
	LLMMatched  int       `json:"llm_matched"`
	Unmatched   int       `json:"unmatched"`
}

// MatchResult is the final state of one transaction in a run.
type MatchResult struct {
	Date          time.Time       `json:"date"`
	RunID         string          `json:"run_id"`
	TransactionID string          `json:"transaction_id"`
	Hash          string          `json:"hash"`
	Description   string          `json:"description"`
	AccountNumber string          `json:"account_number,omitempty"`
	Source        MatchSource     `json:"source"`
	Amount        decimal.Decimal `json:"amount"`
	Confidence    float64         `json:"confidence"`
	Alternatives  int             `json:"alternatives"`
	NeedsReview   bool            `json:"needs_review"`
}

// ResultFor captures the current match state of txn for run runID.
func ResultFor(runID string, txn *Transaction) MatchResult {
	result := MatchResult{
		RunID:         runID,
		TransactionID: txn.ID,
		Hash:          txn.GenerateHash(),
		Description:   txn.Description,
		Date:          txn.Date,
		Amount:        txn.Amount,
		Source:        txn.Source(),
		Confidence:    txn.Confidence(),
		Alternatives:  len(txn.OtherMatches()),
		NeedsReview:   txn.NeedsReview(),
	}
	if acct := txn.Account(); acct != nil {
		result.AccountNumber = acct.Number
	}
	return result
}
