package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is returned when a rule cannot be used for matching.
var ErrInvalidRule = errors.New("invalid rule")

// ValidConfidence reports whether v is a usable confidence in [0,1]. NaN is not.
func ValidConfidence(v float64) bool {
	return v >= 0 && v <= 1
}

// Rule assigns transactions whose description matches Pattern to an account.
type Rule struct {
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
	Pattern       string  `json:"pattern" yaml:"pattern"`
	AccountNumber string  `json:"account_number" yaml:"account_number"`
	Priority      int     `json:"priority" yaml:"priority"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
	IsRegex       bool    `json:"is_regex,omitempty" yaml:"is_regex,omitempty"`
}

// Validate checks the rule in isolation. Whether the target account exists is
// checked against a chart by the matcher.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("%w: missing pattern", ErrInvalidRule)
	}
	if strings.TrimSpace(r.AccountNumber) == "" {
		return fmt.Errorf("%w: missing account number", ErrInvalidRule)
	}
	if !ValidConfidence(r.Confidence) {
		return fmt.Errorf("%w: confidence %.2f outside [0,1]", ErrInvalidRule, r.Confidence)
	}
	if r.IsRegex {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("%w: pattern %q: %v", ErrInvalidRule, r.Pattern, err)
		}
	}
	return nil
}

// String renders the rule for logs and CLI output.
func (r Rule) String() string {
	kind := "contains"
	if r.IsRegex {
		kind = "regex"
	}
	return fmt.Sprintf("%s %q -> %s (priority %d, confidence %.2f)", kind, r.Pattern, r.AccountNumber, r.Priority, r.Confidence)
}
