package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Rules and description mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					position INTEGER NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					pattern TEXT NOT NULL,
					account_number TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					is_regex BOOLEAN NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_rules_position ON rules(position)`,

				`CREATE TABLE IF NOT EXISTS mappings (
					description TEXT PRIMARY KEY,
					account_number TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add match run history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS match_runs (
					id TEXT PRIMARY KEY,
					input TEXT NOT NULL DEFAULT '',
					threshold REAL NOT NULL,
					started_at DATETIME NOT NULL,
					finished_at DATETIME NOT NULL,
					total INTEGER NOT NULL DEFAULT 0,
					rule_matched INTEGER NOT NULL DEFAULT 0,
					llm_matched INTEGER NOT NULL DEFAULT 0,
					unmatched INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_match_runs_started_at ON match_runs(started_at)`,

				`CREATE TABLE IF NOT EXISTS match_results (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					hash TEXT NOT NULL,
					date DATETIME,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					account_number TEXT,
					source TEXT NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					FOREIGN KEY (run_id) REFERENCES match_runs(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_match_results_run_id ON match_results(run_id)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Track review state and alternatives on results",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`ALTER TABLE match_results ADD COLUMN alternatives INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE match_results ADD COLUMN needs_review BOOLEAN NOT NULL DEFAULT 0`,
				`CREATE INDEX idx_match_results_hash ON match_results(hash)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
