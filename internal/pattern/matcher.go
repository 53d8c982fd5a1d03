package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

// DefaultMappingConfidence is assigned to mapping hits, which are treated as
// previously confirmed ground truth.
const DefaultMappingConfidence = 1.0

// compiledRule is a validated rule with its pattern prepared for matching.
type compiledRule struct {
	re     *regexp.Regexp
	needle string
	rule   Rule
}

func (c compiledRule) matches(normalized string) bool {
	if c.re != nil {
		return c.re.MatchString(normalized)
	}
	return strings.Contains(normalized, c.needle)
}

type mappingEntry struct {
	account *model.Account
	key     string
}

// RuleMatcher resolves transactions through the description mapping first and
// the ranked rule list second.
type RuleMatcher struct {
	chart             *model.ChartOfAccounts
	logger            *slog.Logger
	score             ScoreFunc
	exact             map[string]*model.Account
	prefixes          []mappingEntry
	rules             []compiledRule
	mappingConfidence float64
}

// Option configures a RuleMatcher.
type Option func(*RuleMatcher)

// WithScorer replaces the default BaseScore scoring strategy.
func WithScorer(score ScoreFunc) Option {
	return func(m *RuleMatcher) {
		if score != nil {
			m.score = score
		}
	}
}

// WithMappingConfidence sets the confidence assigned to mapping hits.
func WithMappingConfidence(confidence float64) Option {
	return func(m *RuleMatcher) {
		m.mappingConfidence = clamp(confidence)
	}
}

// WithLogger sets the logger used for skipped rules and mappings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *RuleMatcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewRuleMatcher loads rules and mappings against the chart. Invalid rules and
// rules or mappings targeting accounts missing from the chart are skipped.
func NewRuleMatcher(chart *model.ChartOfAccounts, rules []Rule, mapping model.Mapping, opts ...Option) (*RuleMatcher, error) {
	if chart == nil {
		return nil, fmt.Errorf("%w: chart of accounts is required", common.ErrMissingConfig)
	}

	m := &RuleMatcher{
		chart:             chart,
		logger:            slog.Default(),
		score:             BaseScore,
		exact:             make(map[string]*model.Account),
		mappingConfidence: DefaultMappingConfidence,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadRules(rules)
	m.loadMapping(mapping)

	m.logger.Debug("rule matcher loaded",
		"rules", len(m.rules),
		"rules_skipped", len(rules)-len(m.rules),
		"mappings", len(m.exact))

	return m, nil
}

func (m *RuleMatcher) loadRules(rules []Rule) {
	for i, rule := range rules {
		if err := CheckRule(m.chart, rule); err != nil {
			m.logger.Debug("skipping rule", "index", i, "pattern", rule.Pattern, "error", err)
			continue
		}

		compiled := compiledRule{rule: rule}
		if rule.IsRegex {
			// Validate already compiled the plain pattern; the folded form only adds a flag.
			compiled.re = regexp.MustCompile("(?i)" + rule.Pattern)
		} else {
			compiled.needle = model.NormalizeDescription(rule.Pattern)
		}
		m.rules = append(m.rules, compiled)
	}

	// Stable sort keeps load order as the final tie-break.
	sort.SliceStable(m.rules, func(i, j int) bool {
		a, b := m.rules[i].rule, m.rules[j].rule
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Confidence > b.Confidence
	})
}

func (m *RuleMatcher) loadMapping(mapping model.Mapping) {
	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, raw := range keys {
		key := model.NormalizeDescription(raw)
		if key == "" {
			continue
		}
		if _, exists := m.exact[key]; exists {
			continue
		}
		acct, ok := m.chart.Lookup(mapping[raw])
		if !ok {
			m.logger.Debug("skipping mapping for unknown account",
				"description", raw,
				"account", mapping[raw])
			continue
		}
		m.exact[key] = acct
		m.prefixes = append(m.prefixes, mappingEntry{key: key, account: acct})
	}

	sort.SliceStable(m.prefixes, func(i, j int) bool {
		return len(m.prefixes[i].key) > len(m.prefixes[j].key)
	})
}

// Name identifies the matcher in logs.
func (m *RuleMatcher) Name() string {
	return "rules"
}

// Process matches every transaction in place. It never fails on individual
// transactions; unmatched ones keep their previous state.
func (m *RuleMatcher) Process(_ context.Context, transactions []*model.Transaction) error {
	var matched int
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		if m.MatchTransaction(txn) {
			matched++
		}
	}

	m.logger.Info("rule pass complete",
		"transactions", len(transactions),
		"matched", matched)
	return nil
}

// MatchTransaction applies the mapping short-circuit and then the ranked rules
// to a single transaction. It reports whether a match was added.
func (m *RuleMatcher) MatchTransaction(txn *model.Transaction) bool {
	normalized := model.NormalizeDescription(txn.Description)
	if normalized == "" {
		return false
	}

	if acct, key, ok := m.lookupMapping(normalized); ok {
		m.logger.Debug("mapping hit",
			"transaction_id", txn.ID,
			"mapping", key,
			"account", acct.Number)
		txn.AddMatch(acct, m.mappingConfidence, model.SourceRule)
		return true
	}

	for _, candidate := range m.rules {
		if !candidate.matches(normalized) {
			continue
		}
		acct, ok := m.chart.Lookup(candidate.rule.AccountNumber)
		if !ok {
			m.logger.Warn("rule targets unknown account, trying next",
				"pattern", candidate.rule.Pattern,
				"account", candidate.rule.AccountNumber)
			continue
		}

		confidence := m.score(candidate.rule, txn)
		if !model.ValidConfidence(confidence) {
			m.logger.Warn("rule scored outside [0,1], trying next",
				"pattern", candidate.rule.Pattern,
				"confidence", confidence)
			continue
		}
		m.logger.Debug("rule hit",
			"transaction_id", txn.ID,
			"pattern", candidate.rule.Pattern,
			"account", acct.Number,
			"confidence", confidence)
		txn.AddMatch(acct, confidence, model.SourceRule)
		return true
	}

	return false
}

// LookupMapping resolves a raw description through the mapping alone. It
// returns the account and the mapping key that matched.
func (m *RuleMatcher) LookupMapping(description string) (*model.Account, string, bool) {
	return m.lookupMapping(model.NormalizeDescription(description))
}

// lookupMapping tries the exact key first and then the longest key that is a
// prefix of the description ending on a word boundary.
func (m *RuleMatcher) lookupMapping(normalized string) (*model.Account, string, bool) {
	if acct, ok := m.exact[normalized]; ok {
		return acct, normalized, true
	}
	for _, entry := range m.prefixes {
		if strings.HasPrefix(normalized, entry.key) && atWordBoundary(normalized, len(entry.key)) {
			return entry.account, entry.key, true
		}
	}
	return nil, "", false
}

func atWordBoundary(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// MatchingRules returns the loaded rules whose pattern matches description, in
// the order they would be tried.
func (m *RuleMatcher) MatchingRules(description string) []Rule {
	normalized := model.NormalizeDescription(description)
	var result []Rule
	for _, candidate := range m.rules {
		if candidate.matches(normalized) {
			result = append(result, candidate.rule)
		}
	}
	return result
}

// Rules returns the valid rules in evaluation order.
func (m *RuleMatcher) Rules() []Rule {
	result := make([]Rule, len(m.rules))
	for i, candidate := range m.rules {
		result[i] = candidate.rule
	}
	return result
}

// MappingCount returns the number of usable mappings.
func (m *RuleMatcher) MappingCount() int {
	return len(m.exact)
}
