package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/txmatch/internal/model"
)

// LoadRules returns the stored rules in the order they were saved.
func (s *SQLiteStorage) LoadRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, pattern, account_number, priority, confidence, is_regex
		FROM rules
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := []model.Rule{}
	for rows.Next() {
		var rule model.Rule
		if err := rows.Scan(
			&rule.Name,
			&rule.Pattern,
			&rule.AccountNumber,
			&rule.Priority,
			&rule.Confidence,
			&rule.IsRegex,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return rules, nil
}

// SaveRules replaces the stored rule list.
func (s *SQLiteStorage) SaveRules(ctx context.Context, rules []model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
			return fmt.Errorf("failed to clear rules: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rules (position, name, pattern, account_number, priority, confidence, is_regex)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, rule := range rules {
			if _, err := stmt.ExecContext(ctx,
				i,
				rule.Name,
				rule.Pattern,
				strings.TrimSpace(rule.AccountNumber),
				rule.Priority,
				rule.Confidence,
				rule.IsRegex,
			); err != nil {
				return fmt.Errorf("failed to insert rule %d: %w", i, err)
			}
		}
		return nil
	})
}

// LoadMappings returns every stored mapping.
func (s *SQLiteStorage) LoadMappings(ctx context.Context) (model.Mapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.loadMappingsTx(ctx, s.db)
}

func (s *SQLiteStorage) loadMappingsTx(ctx context.Context, q queryable) (model.Mapping, error) {
	rows, err := q.QueryContext(ctx, `SELECT description, account_number FROM mappings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	raw := make(map[string]string)
	for rows.Next() {
		var desc, number string
		if err := rows.Scan(&desc, &number); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		raw[desc] = number
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mappings: %w", err)
	}
	return model.NewMapping(raw), nil
}

// SaveMappings replaces the stored mappings.
func (s *SQLiteStorage) SaveMappings(ctx context.Context, mapping model.Mapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM mappings`); err != nil {
			return fmt.Errorf("failed to clear mappings: %w", err)
		}
		for _, key := range sortedKeys(mapping) {
			if err := upsertMapping(ctx, tx, key, mapping[key]); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddMapping inserts or replaces the mapping for description.
func (s *SQLiteStorage) AddMapping(ctx context.Context, description, accountNumber string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(description, "description"); err != nil {
		return err
	}
	if err := validateString(accountNumber, "accountNumber"); err != nil {
		return err
	}
	return upsertMapping(ctx, s.db, model.NormalizeDescription(description), strings.TrimSpace(accountNumber))
}

func upsertMapping(ctx context.Context, q queryable, key, accountNumber string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO mappings (description, account_number, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(description) DO UPDATE SET
			account_number = excluded.account_number,
			updated_at = CURRENT_TIMESTAMP
	`, key, accountNumber)
	if err != nil {
		return fmt.Errorf("failed to save mapping %q: %w", key, err)
	}
	return nil
}
