package pattern

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Veraticus/txmatch/internal/model"
)

// ErrUnknownAccount is reported for rules whose target is missing from the chart.
var ErrUnknownAccount = errors.New("account not in chart")

// RuleProblem describes a rule that the matcher will skip.
type RuleProblem struct {
	Err   error
	Rule  Rule
	Index int
}

func (p RuleProblem) String() string {
	return fmt.Sprintf("rule %d (%q): %v", p.Index, p.Rule.Pattern, p.Err)
}

// CheckRule reports whether rule is usable against chart.
func CheckRule(chart *model.ChartOfAccounts, rule Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if _, ok := chart.Lookup(rule.AccountNumber); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAccount, rule.AccountNumber)
	}
	return nil
}

// ValidateRules returns a problem for every rule the matcher would skip, in
// input order.
func ValidateRules(chart *model.ChartOfAccounts, rules []Rule) []RuleProblem {
	var problems []RuleProblem
	for i, rule := range rules {
		if err := CheckRule(chart, rule); err != nil {
			problems = append(problems, RuleProblem{Index: i, Rule: rule, Err: err})
		}
	}
	return problems
}

// ValidateMapping returns the raw mapping keys whose account is missing from
// the chart, sorted.
func ValidateMapping(chart *model.ChartOfAccounts, mapping model.Mapping) []string {
	var missing []string
	for description, number := range mapping {
		if _, ok := chart.Lookup(number); !ok {
			missing = append(missing, description)
		}
	}
	sort.Strings(missing)
	return missing
}
