// Package service defines the store contracts consumed by the command line and
// the HTTP API.
package service

import (
	"context"

	"github.com/Veraticus/txmatch/internal/model"
)

// RuleStore persists the rule list.
type RuleStore interface {
	LoadRules(ctx context.Context) ([]model.Rule, error)
	SaveRules(ctx context.Context, rules []model.Rule) error
}

// MappingStore persists confirmed description to account mappings.
type MappingStore interface {
	LoadMappings(ctx context.Context) (model.Mapping, error)
	SaveMappings(ctx context.Context, mapping model.Mapping) error
	// AddMapping inserts or replaces the mapping for a single description.
	AddMapping(ctx context.Context, description, accountNumber string) error
}

// RunStore records matching runs and their per-transaction results.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.MatchRun, results []model.MatchResult) error
	ListRuns(ctx context.Context, limit int) ([]model.MatchRun, error)
	GetRunResults(ctx context.Context, runID string) ([]model.MatchResult, error)
}

// Store bundles the rule and mapping stores every backend provides.
type Store interface {
	RuleStore
	MappingStore
	Close() error
}
