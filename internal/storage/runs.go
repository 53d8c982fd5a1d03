package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

// SaveRun records a run and its results. A missing run ID is filled with a
// new UUID, and result run IDs are set to match.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.MatchRun, results []model.MatchResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run, results); err != nil {
		return err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO match_runs (id, input, threshold, started_at, finished_at,
				total, rule_matched, llm_matched, unmatched)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			run.Input,
			run.Threshold,
			run.StartedAt.UTC(),
			run.FinishedAt.UTC(),
			run.Total,
			run.RuleMatched,
			run.LLMMatched,
			run.Unmatched,
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO match_results (run_id, transaction_id, hash, date, description,
				amount, account_number, source, confidence, alternatives, needs_review)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, result := range results {
			var account sql.NullString
			if result.AccountNumber != "" {
				account = sql.NullString{String: result.AccountNumber, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				run.ID,
				result.TransactionID,
				result.Hash,
				result.Date.UTC(),
				result.Description,
				result.Amount.String(),
				account,
				string(result.Source),
				result.Confidence,
				result.Alternatives,
				result.NeedsReview,
			); err != nil {
				return fmt.Errorf("failed to insert result for %s: %w", result.TransactionID, err)
			}
		}
		return nil
	})
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.MatchRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, input, threshold, started_at, finished_at,
			total, rule_matched, llm_matched, unmatched
		FROM match_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []model.MatchRun{}
	for rows.Next() {
		var run model.MatchRun
		if err := rows.Scan(
			&run.ID,
			&run.Input,
			&run.Threshold,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Total,
			&run.RuleMatched,
			&run.LLMMatched,
			&run.Unmatched,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// GetRunResults returns the results recorded for runID in insertion order.
// An unknown run yields common.ErrNotFound.
func (s *SQLiteStorage) GetRunResults(ctx context.Context, runID string) ([]model.MatchResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	var exists string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM match_runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, transaction_id, hash, date, description, amount,
			account_number, source, confidence, alternatives, needs_review
		FROM match_results
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []model.MatchResult{}
	for rows.Next() {
		var (
			result  model.MatchResult
			amount  string
			account sql.NullString
			source  string
		)
		if err := rows.Scan(
			&result.RunID,
			&result.TransactionID,
			&result.Hash,
			&result.Date,
			&result.Description,
			&amount,
			&account,
			&source,
			&result.Confidence,
			&result.Alternatives,
			&result.NeedsReview,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		result.AccountNumber = account.String
		result.Source = model.MatchSource(source)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return results, nil
}
