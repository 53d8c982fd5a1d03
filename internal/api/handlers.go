package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/ingest"
	"github.com/Veraticus/txmatch/internal/model"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"accounts":  s.chart.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) listAccounts(c *gin.Context) {
	source := s.chart.Accounts()
	if c.Query("leaf") == "true" {
		source = s.chart.Leaves()
	}
	accounts := make([]AccountResponse, 0, len(source))
	for _, acct := range source {
		accounts = append(accounts, newAccountResponse(s.chart, acct))
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	if len(req.Transactions) > s.config.MaxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: fmt.Sprintf("at most %d transactions per request", s.config.MaxBatch),
		})
		return
	}

	threshold := s.engine.Threshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	txns := make([]*model.Transaction, 0, len(req.Transactions))
	for i, in := range req.Transactions {
		txn, err := toTransaction(in)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("transaction %d: %v", i, err)})
			return
		}
		txns = append(txns, txn)
	}

	txns, err := s.engine.ProcessTransactions(c.Request.Context(), txns, threshold)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidThreshold) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("match request failed", "transactions", len(txns), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "matching failed"})
		return
	}

	resp := MatchResponse{
		Threshold:    threshold,
		Summary:      newSummaryResponse(engine.Summarize(txns)),
		Transactions: make([]MatchedTransaction, 0, len(txns)),
	}
	for _, txn := range txns {
		resp.Transactions = append(resp.Transactions, newMatchedTransaction(s.chart, txn))
	}
	c.JSON(http.StatusOK, resp)
}

func toTransaction(in TransactionInput) (*model.Transaction, error) {
	var date time.Time
	if in.Date != "" {
		parsed, err := ingest.ParseDate(in.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	txn := model.NewTransaction(id, in.Description, in.Amount, date)
	txn.Category = in.Category
	txn.Type = in.Type
	txn.Memo = in.Memo
	return txn, nil
}
