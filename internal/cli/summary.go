package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/model"
)

// RenderSummary renders the outcome of a matching run.
func RenderSummary(s engine.Summary, elapsed time.Duration) string {
	body := fmt.Sprintf("%s Results:\n", ChartIcon) +
		fmt.Sprintf("  • Transactions: %d\n", s.Total) +
		fmt.Sprintf("  • %s Rule matches: %d\n", RuleIcon, s.RuleMatched) +
		fmt.Sprintf("  • %s LLM matches: %d\n", RobotIcon, s.LLMMatched) +
		fmt.Sprintf("  • Unmatched: %d\n", s.Unmatched) +
		fmt.Sprintf("  • Needs review: %d\n", s.NeedsReview) +
		fmt.Sprintf("  • Match rate: %.1f%%\n", s.MatchRate()*100) +
		fmt.Sprintf("  • Time taken: %s", elapsed.Round(time.Millisecond))
	return RenderBox("Matching Complete", body)
}

// RenderReviewStats renders the outcome of an interactive review.
func RenderReviewStats(s ReviewStats, saved int) string {
	body := fmt.Sprintf("  • Reviewed: %d\n", s.Reviewed) +
		fmt.Sprintf("  • Accepted: %d\n", s.Accepted) +
		fmt.Sprintf("  • Changed: %d\n", s.Changed) +
		fmt.Sprintf("  • Skipped: %d\n", s.Skipped) +
		fmt.Sprintf("  • New mappings: %d\n", saved) +
		fmt.Sprintf("  • Time taken: %s", s.Duration.Round(time.Second))
	return RenderBox("Review Complete", body)
}

// RenderAccounts renders the chart as an indented table.
func RenderAccounts(chart *model.ChartOfAccounts) string {
	rows := make([][]string, 0, chart.Len())
	for _, acct := range chart.Accounts() {
		depth := len(acct.Path) - 1
		if depth < 0 {
			depth = 0
		}
		leaf := ""
		if chart.IsLeaf(acct.Number) {
			leaf = SuccessIcon
		}
		rows = append(rows, []string{acct.Number, strings.Repeat("  ", depth) + acct.Name, leaf})
	}
	return RenderTable([]string{"Number", "Account", "Leaf"}, rows)
}

// RenderRules renders rules with their target account names.
func RenderRules(rules []model.Rule, chart *model.ChartOfAccounts) string {
	rows := make([][]string, 0, len(rules))
	for i, r := range rules {
		kind := "contains"
		if r.IsRegex {
			kind = "regex"
		}
		target := r.AccountNumber
		if acct, ok := chart.Lookup(r.AccountNumber); ok {
			target = accountLabel(acct)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Name,
			kind,
			r.Pattern,
			target,
			strconv.Itoa(r.Priority),
			fmt.Sprintf("%.2f", r.Confidence),
		})
	}
	return RenderTable([]string{"#", "Name", "Kind", "Pattern", "Account", "Priority", "Confidence"}, rows)
}

// RenderMappings renders description mappings in key order.
func RenderMappings(mapping model.Mapping, chart *model.ChartOfAccounts) string {
	rows := make([][]string, 0, len(mapping))
	for _, k := range slices.Sorted(maps.Keys(mapping)) {
		number := mapping[k]
		target := WarningStyle.Render(number + " (unknown)")
		if acct, ok := chart.Lookup(number); ok {
			target = accountLabel(acct)
		}
		rows = append(rows, []string{k, target})
	}
	return RenderTable([]string{"Description", "Account"}, rows)
}

// RenderRuns renders stored run summaries, newest first.
func RenderRuns(runs []model.MatchRun) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Input,
			strconv.Itoa(run.Total),
			strconv.Itoa(run.RuleMatched),
			strconv.Itoa(run.LLMMatched),
			strconv.Itoa(run.Unmatched),
		})
	}
	return RenderTable([]string{"ID", "Started", "Input", "Total", "Rule", "LLM", "Unmatched"}, rows)
}
