// Package model defines the core data structures for the txmatch application.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Chart configuration errors. These are fatal at load time.
var (
	ErrInvalidAccount   = errors.New("invalid account")
	ErrDuplicateAccount = errors.New("duplicate account number")
	ErrUnknownParent    = errors.New("parent account does not exist")
	ErrAccountCycle     = errors.New("account hierarchy contains a cycle")
)

// PathSeparator joins account names when rendering a full account path.
const PathSeparator = " > "

// Account represents a single entry in the chart of accounts.
type Account struct {
	Number       string   `json:"number" yaml:"number"`
	Name         string   `json:"name" yaml:"name"`
	ParentNumber string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Path         []string `json:"path,omitempty" yaml:"-"` // ancestor names, root first, self last
}

// FullName returns the account path joined with PathSeparator.
func (a *Account) FullName() string {
	if len(a.Path) == 0 {
		return a.Name
	}
	return strings.Join(a.Path, PathSeparator)
}

// IsRoot reports whether the account has no parent.
func (a *Account) IsRoot() bool {
	return a.ParentNumber == ""
}

// ChartOfAccounts is an immutable registry of accounts keyed by number.
type ChartOfAccounts struct {
	accounts map[string]*Account
	children map[string][]string
	order    []string
}

// NewChartOfAccounts validates the given accounts and builds the hierarchy.
// Every non-root account must reference a parent present in the same slice,
// and the parent links must not form a cycle.
func NewChartOfAccounts(accounts []Account) (*ChartOfAccounts, error) {
	chart := &ChartOfAccounts{
		accounts: make(map[string]*Account, len(accounts)),
		children: make(map[string][]string),
		order:    make([]string, 0, len(accounts)),
	}

	for i := range accounts {
		acct := accounts[i]
		acct.Number = strings.TrimSpace(acct.Number)
		acct.Name = strings.TrimSpace(acct.Name)
		acct.ParentNumber = strings.TrimSpace(acct.ParentNumber)

		if acct.Number == "" {
			return nil, fmt.Errorf("%w: account at index %d has no number", ErrInvalidAccount, i)
		}
		if acct.Name == "" {
			return nil, fmt.Errorf("%w: account %s has no name", ErrInvalidAccount, acct.Number)
		}
		if acct.ParentNumber == acct.Number {
			return nil, fmt.Errorf("%w: account %s is its own parent", ErrAccountCycle, acct.Number)
		}
		if _, exists := chart.accounts[acct.Number]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, acct.Number)
		}

		acct.Path = nil
		chart.accounts[acct.Number] = &acct
		chart.order = append(chart.order, acct.Number)
	}

	for _, number := range chart.order {
		acct := chart.accounts[number]
		if acct.IsRoot() {
			continue
		}
		if _, ok := chart.accounts[acct.ParentNumber]; !ok {
			return nil, fmt.Errorf("%w: account %s references parent %s", ErrUnknownParent, acct.Number, acct.ParentNumber)
		}
		chart.children[acct.ParentNumber] = append(chart.children[acct.ParentNumber], acct.Number)
	}

	for _, number := range chart.order {
		path, err := chart.resolvePath(number)
		if err != nil {
			return nil, err
		}
		chart.accounts[number].Path = path
	}

	return chart, nil
}

// resolvePath walks parent links up to the root and returns the names root-first.
func (c *ChartOfAccounts) resolvePath(number string) ([]string, error) {
	visited := make(map[string]bool)
	var names []string

	for current := number; current != ""; {
		if visited[current] {
			return nil, fmt.Errorf("%w: reached %s twice while resolving %s", ErrAccountCycle, current, number)
		}
		visited[current] = true

		acct := c.accounts[current]
		names = append(names, acct.Name)
		current = acct.ParentNumber
	}

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names, nil
}

// Lookup returns the account with the given number. Absence is reported
// through the boolean, not as an error.
func (c *ChartOfAccounts) Lookup(number string) (*Account, bool) {
	if c == nil {
		return nil, false
	}
	acct, ok := c.accounts[strings.TrimSpace(number)]
	return acct, ok
}

// Path returns the ancestor names of an account, root first.
func (c *ChartOfAccounts) Path(number string) ([]string, bool) {
	acct, ok := c.Lookup(number)
	if !ok {
		return nil, false
	}
	path := make([]string, len(acct.Path))
	copy(path, acct.Path)
	return path, true
}

// IsLeaf reports whether the account exists and has no children.
func (c *ChartOfAccounts) IsLeaf(number string) bool {
	if _, ok := c.Lookup(number); !ok {
		return false
	}
	return len(c.children[strings.TrimSpace(number)]) == 0
}

// Accounts returns all accounts in load order.
func (c *ChartOfAccounts) Accounts() []*Account {
	if c == nil {
		return nil
	}
	result := make([]*Account, 0, len(c.order))
	for _, number := range c.order {
		result = append(result, c.accounts[number])
	}
	return result
}

// Leaves returns the accounts without children in load order.
func (c *ChartOfAccounts) Leaves() []*Account {
	if c == nil {
		return nil
	}
	var result []*Account
	for _, number := range c.order {
		if len(c.children[number]) == 0 {
			result = append(result, c.accounts[number])
		}
	}
	return result
}

// Children returns the direct children of an account in load order.
func (c *ChartOfAccounts) Children(number string) []*Account {
	if c == nil {
		return nil
	}
	var result []*Account
	for _, child := range c.children[strings.TrimSpace(number)] {
		result = append(result, c.accounts[child])
	}
	return result
}

// Len returns the number of accounts in the chart.
func (c *ChartOfAccounts) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
