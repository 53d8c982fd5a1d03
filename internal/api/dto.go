package api

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/model"
)

// TransactionInput is one transaction in a match request.
type TransactionInput struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Memo        string          `json:"memo"`
	Amount      decimal.Decimal `json:"amount"`
}

// MatchRequest is the body of POST /api/match. Threshold defaults to the
// server's configured threshold.
type MatchRequest struct {
	Threshold    *float64           `json:"threshold"`
	Transactions []TransactionInput `json:"transactions" binding:"required,min=1,dive"`
}

// AccountResponse describes an account.
type AccountResponse struct {
	Number   string `json:"number"`
	Name     string `json:"name"`
	Parent   string `json:"parent,omitempty"`
	FullName string `json:"full_name"`
	Leaf     bool   `json:"leaf"`
}

// CandidateResponse is one considered match.
type CandidateResponse struct {
	Account    AccountResponse   `json:"account"`
	Source     model.MatchSource `json:"source"`
	Confidence float64           `json:"confidence"`
}

// MatchedTransaction is a transaction with its current match and alternatives.
type MatchedTransaction struct {
	Match        *CandidateResponse  `json:"match"`
	ID           string              `json:"id"`
	Description  string              `json:"description"`
	Amount       decimal.Decimal     `json:"amount"`
	Alternatives []CandidateResponse `json:"alternatives"`
	NeedsReview  bool                `json:"needs_review"`
}

// SummaryResponse counts the outcome of a match request.
type SummaryResponse struct {
	Total       int     `json:"total"`
	RuleMatched int     `json:"rule_matched"`
	LLMMatched  int     `json:"llm_matched"`
	Unmatched   int     `json:"unmatched"`
	NeedsReview int     `json:"needs_review"`
	MatchRate   float64 `json:"match_rate"`
}

// MatchResponse is the body returned by POST /api/match.
type MatchResponse struct {
	Transactions []MatchedTransaction `json:"transactions"`
	Summary      SummaryResponse      `json:"summary"`
	Threshold    float64              `json:"threshold"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newAccountResponse(chart *model.ChartOfAccounts, acct *model.Account) AccountResponse {
	return AccountResponse{
		Number:   acct.Number,
		Name:     acct.Name,
		Parent:   acct.ParentNumber,
		FullName: acct.FullName(),
		Leaf:     chart.IsLeaf(acct.Number),
	}
}

func newCandidate(chart *model.ChartOfAccounts, m model.Match) CandidateResponse {
	return CandidateResponse{
		Account:    newAccountResponse(chart, m.Account),
		Source:     m.Source,
		Confidence: m.Confidence,
	}
}

func newMatchedTransaction(chart *model.ChartOfAccounts, txn *model.Transaction) MatchedTransaction {
	out := MatchedTransaction{
		ID:           txn.ID,
		Description:  txn.Description,
		Amount:       txn.Amount,
		NeedsReview:  txn.NeedsReview(),
		Alternatives: []CandidateResponse{},
	}
	if m, ok := txn.CurrentMatch(); ok {
		c := newCandidate(chart, m)
		out.Match = &c
	}
	for _, m := range txn.OtherMatches() {
		out.Alternatives = append(out.Alternatives, newCandidate(chart, m))
	}
	return out
}

func newSummaryResponse(s engine.Summary) SummaryResponse {
	return SummaryResponse{
		Total:       s.Total,
		RuleMatched: s.RuleMatched,
		LLMMatched:  s.LLMMatched,
		Unmatched:   s.Unmatched,
		NeedsReview: s.NeedsReview,
		MatchRate:   s.MatchRate(),
	}
}
