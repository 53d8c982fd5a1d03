package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/pattern"
	"github.com/Veraticus/txmatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingMatcher remembers the transactions it was given and optionally
// adds a fixed match to each.
type recordingMatcher struct {
	account    *model.Account
	err        error
	seen       [][]string
	confidence float64
	name       string
	source     model.MatchSource
}

func (r *recordingMatcher) Name() string { return r.name }

func (r *recordingMatcher) Process(_ context.Context, txns []*model.Transaction) error {
	ids := make([]string, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
		if r.account != nil {
			txn.AddMatch(r.account, r.confidence, r.source)
		}
	}
	r.seen = append(r.seen, ids)
	return r.err
}

func newEngine(t *testing.T, threshold float64, primary Matcher, fallbacks ...Matcher) *MatchingEngine {
	t.Helper()
	e, err := NewWithConfig(Config{
		ConfidenceThreshold: threshold,
		Logger:              common.DiscardLogger(),
	}, primary, fallbacks...)
	require.NoError(t, err)
	return e
}

func TestNewWithConfig_Validation(t *testing.T) {
	primary := &recordingMatcher{name: "p"}

	_, err := NewWithConfig(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNoPrimaryMatcher)

	_, err = NewWithConfig(Config{ConfidenceThreshold: 1.5}, primary)
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	e, err := New(primary)
	require.NoError(t, err)
	assert.InDelta(t, DefaultConfidenceThreshold, e.Threshold(), 1e-9)
}

func TestProcessTransactions_ThresholdSwitchesToFallback(t *testing.T) {
	chart := testutil.StandardChart(t)
	rules, err := pattern.NewRuleMatcher(chart, []model.Rule{
		{Pattern: "acme", AccountNumber: testutil.AccountOfficeSupplies, Priority: 1, Confidence: 0.7},
		{Pattern: "delta", AccountNumber: testutil.AccountTravel, Priority: 1, Confidence: 0.9},
	}, nil, pattern.WithLogger(common.DiscardLogger()))
	require.NoError(t, err)

	fallback := &recordingMatcher{
		name:       "llm",
		account:    testutil.MustAccount(t, chart, testutil.AccountSoftware),
		confidence: 0.95,
		source:     model.SourceLLM,
	}
	e := newEngine(t, 0.85, rules, fallback)

	txns := []*model.Transaction{
		testutil.Txn("low", "ACME CORP", "-10.00"),
		testutil.Txn("high", "DELTA AIR", "-300.00"),
		testutil.Txn("none", "MYSTERY", "-1.00"),
	}

	got, err := e.ProcessTransactions(context.Background(), txns, 0.85)
	require.NoError(t, err)
	require.Same(t, txns[0], got[0])
	require.Len(t, got, 3)

	assert.Equal(t, [][]string{{"low", "none"}}, fallback.seen)

	assert.Equal(t, model.SourceLLM, txns[0].Source())
	assert.Equal(t, testutil.AccountSoftware, txns[0].Account().Number)
	assert.InDelta(t, 0.95, txns[0].Confidence(), 1e-9)
	assert.Len(t, txns[0].AlternativeMatches(), 2)

	assert.Equal(t, model.SourceRule, txns[1].Source())
	assert.InDelta(t, 0.9, txns[1].Confidence(), 1e-9)

	assert.Equal(t, model.SourceLLM, txns[2].Source())
}

func TestProcessTransactions_GatingIsStrict(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	tests := []struct {
		name       string
		confidence float64
		threshold  float64
		wantGated  bool
	}{
		{name: "below threshold", confidence: 0.79, threshold: 0.8, wantGated: true},
		{name: "at threshold", confidence: 0.8, threshold: 0.8, wantGated: false},
		{name: "above threshold", confidence: 0.81, threshold: 0.8, wantGated: false},
		{name: "zero threshold never gates matched", confidence: 0, threshold: 0, wantGated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &recordingMatcher{name: "rules", account: travel, confidence: tt.confidence, source: model.SourceRule}
			fallback := &recordingMatcher{name: "llm"}
			e := newEngine(t, tt.threshold, primary, fallback)

			_, err := e.Process(context.Background(), []*model.Transaction{testutil.Txn("a", "x", "1")})
			require.NoError(t, err)

			if tt.wantGated {
				assert.Equal(t, [][]string{{"a"}}, fallback.seen)
			} else {
				assert.Empty(t, fallback.seen)
			}
		})
	}
}

func TestProcessTransactions_RefiltersBetweenFallbacks(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	primary := &recordingMatcher{name: "rules"}
	first := &recordingMatcher{name: "first", account: travel, confidence: 0.9, source: model.SourceLLM}
	second := &recordingMatcher{name: "second"}
	e := newEngine(t, 0.8, primary, first, second)

	_, err := e.Process(context.Background(), []*model.Transaction{testutil.Txn("a", "x", "1")})
	require.NoError(t, err)

	assert.Len(t, first.seen, 1)
	assert.Empty(t, second.seen, "second fallback sees nothing once the first lifted confidence")
}

func TestProcessTransactions_FallbackErrorIsIsolated(t *testing.T) {
	primary := &recordingMatcher{name: "rules"}
	failing := &recordingMatcher{name: "broken", err: errors.New("service down")}
	after := &recordingMatcher{name: "after"}
	e := newEngine(t, 0.8, primary, failing, after)

	txns := []*model.Transaction{testutil.Txn("a", "x", "1")}
	got, err := e.Process(context.Background(), txns)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, after.seen, 1)
}

func TestProcessTransactions_PrimaryErrorStillRunsFallbacks(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	primary := MatcherFunc{Label: "rules", Fn: func(_ context.Context, txns []*model.Transaction) error {
		txns[0].AddMatch(travel, 0.9, model.SourceRule)
		return errors.New("rule store went away")
	}}
	fallback := &recordingMatcher{name: "llm"}
	e := newEngine(t, 0.8, primary, fallback)

	txns := []*model.Transaction{testutil.Txn("a", "x", "1"), testutil.Txn("b", "y", "1")}
	got, err := e.Process(context.Background(), txns)
	require.NoError(t, err)
	assert.Equal(t, txns, got)
	assert.Equal(t, [][]string{{"b"}}, fallback.seen)
	assert.Equal(t, model.SourceRule, got[0].Source())
	assert.InDelta(t, 0.9, got[0].Confidence(), 1e-9)
}

func TestProcessTransactions_PrimaryErrorAfterCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := MatcherFunc{Label: "rules", Fn: func(ctx context.Context, _ []*model.Transaction) error {
		cancel()
		return ctx.Err()
	}}
	fallback := &recordingMatcher{name: "llm"}
	e := newEngine(t, 0.8, primary, fallback)

	txns := []*model.Transaction{testutil.Txn("a", "x", "1")}
	got, err := e.Process(ctx, txns)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, txns, got)
	assert.Empty(t, fallback.seen)
}

func TestProcessTransactions_CancellationKeepsPrimaryMatches(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	ctx, cancel := context.WithCancel(context.Background())
	primary := MatcherFunc{Label: "rules", Fn: func(_ context.Context, txns []*model.Transaction) error {
		txns[0].AddMatch(travel, 0.5, model.SourceRule)
		cancel()
		return nil
	}}
	fallback := &recordingMatcher{name: "llm"}
	e := newEngine(t, 0.8, primary, fallback)

	txns := []*model.Transaction{testutil.Txn("a", "x", "1"), testutil.Txn("b", "y", "1")}
	got, err := e.Process(ctx, txns)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	assert.Empty(t, fallback.seen)
	assert.Equal(t, model.SourceRule, got[0].Source())
	assert.InDelta(t, 0.5, got[0].Confidence(), 1e-9)
}

func TestProcessTransactions_InvalidThreshold(t *testing.T) {
	e := newEngine(t, 0.8, &recordingMatcher{name: "rules"})
	txns := []*model.Transaction{testutil.Txn("a", "x", "1")}

	got, err := e.ProcessTransactions(context.Background(), txns, -0.1)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	assert.Equal(t, txns, got)
}

func TestFilterBelowThreshold(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	matched := testutil.Txn("m", "x", "1")
	matched.AddMatch(travel, 0.9, model.SourceRule)
	low := testutil.Txn("l", "x", "1")
	low.AddMatch(travel, 0.3, model.SourceRule)
	none := testutil.Txn("n", "x", "1")

	got := FilterBelowThreshold([]*model.Transaction{matched, nil, low, none}, 0.8)
	assert.Equal(t, []*model.Transaction{low, none}, got)
}

func TestSummarize(t *testing.T) {
	chart := testutil.StandardChart(t)
	travel := testutil.MustAccount(t, chart, testutil.AccountTravel)

	rule := testutil.Txn("r", "x", "1")
	rule.AddMatch(travel, 0.95, model.SourceRule)
	llm := testutil.Txn("l", "x", "1")
	llm.AddMatch(travel, 0.6, model.SourceLLM)
	none := testutil.Txn("n", "x", "1")

	s := Summarize([]*model.Transaction{rule, llm, none, nil})
	assert.Equal(t, Summary{Total: 3, RuleMatched: 1, LLMMatched: 1, Unmatched: 1, NeedsReview: 2}, s)
	assert.InDelta(t, 2.0/3.0, s.MatchRate(), 1e-9)
	assert.Zero(t, Summary{}.MatchRate())
}
