package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/testutil"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestMigrateInMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	rules, err := store.LoadRules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestSQLiteRules(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := []model.Rule{
		{Pattern: "uber", AccountNumber: "6100", Priority: 10, Confidence: 0.9},
		{Pattern: "staples", AccountNumber: "6000", Priority: 1, Confidence: 0.85},
	}
	require.NoError(t, store.SaveRules(ctx, first))

	got, err := store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []model.Rule{
		{Name: "air", Pattern: `delta|united`, AccountNumber: "6100", Confidence: 0.7, IsRegex: true},
	}
	require.NoError(t, store.SaveRules(ctx, second))

	got, err = store.LoadRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestSQLiteMappings(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMappings(ctx, model.NewMapping(map[string]string{
		"Staples Inc": "6000",
	})))
	require.NoError(t, store.AddMapping(ctx, "STAPLES INC", "6200"))
	require.NoError(t, store.AddMapping(ctx, "Delta Air Lines", "6100"))

	mapping, err := store.LoadMappings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Mapping{
		"staples inc":     "6200",
		"delta air lines": "6100",
	}, mapping)

	require.NoError(t, store.SaveMappings(ctx, nil))
	mapping, err = store.LoadMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestSQLiteRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	chart := testutil.StandardChart(t)

	matched := testutil.Txn("t1", "STAPLES INC #4521", "-42.10")
	matched.AddMatch(testutil.MustAccount(t, chart, testutil.AccountOfficeSupplies), 1.0, model.SourceRule)
	unmatched := testutil.Txn("t2", "MYSTERY", "-5.00")

	started := testutil.FixtureDate
	older := &model.MatchRun{
		StartedAt:  started.Add(-time.Hour),
		FinishedAt: started.Add(-time.Hour),
		Threshold:  0.8,
	}
	require.NoError(t, store.SaveRun(ctx, older, nil))
	assert.NotEmpty(t, older.ID)

	run := &model.MatchRun{
		StartedAt:   started,
		FinishedAt:  started.Add(time.Second),
		Input:       "march.csv",
		Threshold:   0.8,
		Total:       2,
		RuleMatched: 1,
		Unmatched:   1,
	}
	results := []model.MatchResult{
		model.ResultFor("", matched),
		model.ResultFor("", unmatched),
	}
	require.NoError(t, store.SaveRun(ctx, run, results))

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "march.csv", runs[0].Input)
	assert.Equal(t, 1, runs[0].RuleMatched)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := store.GetRunResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, run.ID, got[0].RunID)
	assert.Equal(t, "t1", got[0].TransactionID)
	assert.Equal(t, testutil.AccountOfficeSupplies, got[0].AccountNumber)
	assert.Equal(t, model.SourceRule, got[0].Source)
	assert.True(t, decimal.RequireFromString("-42.10").Equal(got[0].Amount))
	assert.False(t, got[0].NeedsReview)

	assert.Empty(t, got[1].AccountNumber)
	assert.Equal(t, model.SourceNone, got[1].Source)
	assert.True(t, got[1].NeedsReview)

	_, err = store.GetRunResults(ctx, "does-not-exist")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveRunValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		run     *model.MatchRun
		name    string
		results []model.MatchResult
	}{
		{name: "nil run"},
		{name: "missing start", run: &model.MatchRun{Threshold: 0.8}},
		{
			name: "bad threshold",
			run:  &model.MatchRun{StartedAt: testutil.FixtureDate, FinishedAt: testutil.FixtureDate, Threshold: 2},
		},
		{
			name:    "result without transaction",
			run:     &model.MatchRun{StartedAt: testutil.FixtureDate, FinishedAt: testutil.FixtureDate},
			results: []model.MatchResult{{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveRun(ctx, tt.run, tt.results))
		})
	}
}
