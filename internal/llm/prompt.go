package llm

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/txmatch/internal/model"
)

// Prompt bounds.
const (
	MaxDescriptionLength = 200
	DefaultMaxAccounts   = 400
)

const systemPrompt = "You match bank transactions to accounts in a chart of accounts. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON."

// chartSummary renders up to maxAccounts accounts as "number | name | path"
// lines. Leaf accounts are listed first because only they can be assigned.
func chartSummary(chart *model.ChartOfAccounts, maxAccounts int) string {
	if maxAccounts <= 0 {
		maxAccounts = DefaultMaxAccounts
	}

	var ordered []*model.Account
	ordered = append(ordered, chart.Leaves()...)
	for _, acct := range chart.Accounts() {
		if !chart.IsLeaf(acct.Number) {
			ordered = append(ordered, acct)
		}
	}

	var b strings.Builder
	for i, acct := range ordered {
		if i == maxAccounts {
			fmt.Fprintf(&b, "(%d more accounts omitted)\n", len(ordered)-maxAccounts)
			break
		}
		fmt.Fprintf(&b, "%s | %s | %s\n", acct.Number, acct.Name, acct.FullName())
	}
	return b.String()
}

// buildPrompt renders the matching prompt for one transaction against a
// pre-rendered chart summary.
func buildPrompt(txn *model.Transaction, summary string) string {
	details := fmt.Sprintf("Description: %s\nAmount: %s\nDate: %s",
		sanitize(txn.Description, MaxDescriptionLength),
		txn.Amount.StringFixed(2),
		txn.Date.Format("2006-01-02"))

	if txn.Type != "" {
		details += fmt.Sprintf("\nType: %s", sanitize(txn.Type, 40))
	}
	if txn.Category != "" {
		details += fmt.Sprintf("\nBank Category: %s", sanitize(txn.Category, 80))
	}
	if txn.Memo != "" {
		details += fmt.Sprintf("\nMemo: %s", sanitize(txn.Memo, 120))
	}

	return fmt.Sprintf(`Choose the account from the chart of accounts below that best fits this bank transaction.

Chart of Accounts (number | name | full path):
%s
Transaction:
%s

Rules:
- Only use an account number that appears in the chart above.
- Prefer the most specific (leaf) account.
- Confidence is a number between 0.0 and 1.0.

Respond with a JSON object in exactly this shape:
{"account_number": "<number>", "confidence": <0.0-1.0>, "reasoning": "<one short sentence>"}`,
		summary,
		details)
}

// BuildPrompt renders the prompt the fallback matcher sends for txn.
func BuildPrompt(txn *model.Transaction, chart *model.ChartOfAccounts) string {
	return buildPrompt(txn, chartSummary(chart, DefaultMaxAccounts))
}

// sanitize collapses control characters to spaces and truncates to limit runes.
func sanitize(s string, limit int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, strings.TrimSpace(s))

	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
