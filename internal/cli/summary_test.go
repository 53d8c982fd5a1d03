package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/testutil"
)

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(engine.Summary{Total: 4, RuleMatched: 2, LLMMatched: 1, Unmatched: 1, NeedsReview: 2}, 1500*time.Millisecond)

	assert.Contains(t, out, "Matching Complete")
	assert.Contains(t, out, "Rule matches: 2")
	assert.Contains(t, out, "LLM matches: 1")
	assert.Contains(t, out, "Needs review: 2")
	assert.Contains(t, out, "Match rate: 75.0%")
}

func TestRenderReviewStats(t *testing.T) {
	out := RenderReviewStats(ReviewStats{Reviewed: 3, Accepted: 1, Changed: 1, Skipped: 1}, 2)
	assert.Contains(t, out, "Reviewed: 3")
	assert.Contains(t, out, "New mappings: 2")
}

func TestRenderAccounts(t *testing.T) {
	out := RenderAccounts(testutil.StandardChart(t))
	assert.Contains(t, out, "Number")
	assert.Contains(t, out, "6110")
	assert.Contains(t, out, "    Meals")
}

func TestRenderRules(t *testing.T) {
	chart := testutil.StandardChart(t)
	rules := []model.Rule{
		{Name: "uber eats", Pattern: "UBER EATS", AccountNumber: testutil.AccountMeals, Priority: 10, Confidence: 0.9},
		{Pattern: `^ADOBE\b`, AccountNumber: "9999", Confidence: 0.8, IsRegex: true},
	}

	out := RenderRules(rules, chart)
	assert.Contains(t, out, "6110 Operating Expenses > Travel > Meals")
	assert.Contains(t, out, "regex")
	assert.Contains(t, out, "9999")
	assert.Contains(t, out, "0.90")
}

func TestRenderMappings(t *testing.T) {
	chart := testutil.StandardChart(t)
	mapping := model.NewMapping(map[string]string{"adobe": testutil.AccountSoftware, "old vendor": "9999"})

	out := RenderMappings(mapping, chart)
	assert.Contains(t, out, "6200 Operating Expenses > Software")
	assert.Contains(t, out, "9999 (unknown)")
}

func TestRenderRuns(t *testing.T) {
	runs := []model.MatchRun{{
		ID:          "run-1",
		StartedAt:   testutil.FixtureDate,
		Input:       "march.csv",
		Total:       10,
		RuleMatched: 7,
		LLMMatched:  2,
		Unmatched:   1,
	}}

	out := RenderRuns(runs)
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "march.csv")
}
