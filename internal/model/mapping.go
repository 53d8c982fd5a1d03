package model

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Mapping is a confirmed description to account number shortcut. Keys are
// normalized descriptions; a description maps to exactly one account.
type Mapping map[string]string

// NormalizeDescription trims surrounding whitespace and case-folds s.
func NormalizeDescription(s string) string {
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}

// NewMapping builds a Mapping from raw descriptions, normalizing every key.
// When several raw descriptions fold to the same key, the lexically smallest
// raw description wins.
func NewMapping(raw map[string]string) Mapping {
	keys := make([]string, 0, len(raw))
	for desc := range raw {
		keys = append(keys, desc)
	}
	sort.Strings(keys)

	m := make(Mapping, len(raw))
	for _, desc := range keys {
		if _, exists := m.Get(desc); exists {
			continue
		}
		m.Set(desc, raw[desc])
	}
	return m
}

// Set stores a mapping for description, replacing any previous account.
func (m Mapping) Set(description, accountNumber string) {
	key := NormalizeDescription(description)
	if key == "" {
		return
	}
	m[key] = strings.TrimSpace(accountNumber)
}

// Get returns the account number mapped to description.
func (m Mapping) Get(description string) (string, bool) {
	number, ok := m[NormalizeDescription(description)]
	return number, ok
}
