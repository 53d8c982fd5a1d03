// Package testutil provides shared fixtures for txmatch tests: a fluent chart
// builder and helpers for constructing transactions.
//
// Example usage:
//
//	chart := testutil.NewChartBuilder(t).
//		WithStandardAccounts().
//		WithAccount("7000", "Utilities", "5000").
//		Build()
package testutil

import (
	"testing"
	"time"

	"github.com/Veraticus/txmatch/internal/model"
	"github.com/shopspring/decimal"
)

// Account numbers in the standard fixture.
const (
	AccountRevenue        = "4000"
	AccountExpenses       = "5000"
	AccountOfficeSupplies = "6000"
	AccountTravel         = "6100"
	AccountMeals          = "6110"
	AccountSoftware       = "6200"
)

// FixtureDate is the date given to transactions built by Txn.
var FixtureDate = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

// StandardAccounts returns the accounts of the standard fixture in load order.
func StandardAccounts() []model.Account {
	return []model.Account{
		{Number: AccountRevenue, Name: "Revenue"},
		{Number: AccountExpenses, Name: "Operating Expenses"},
		{Number: AccountOfficeSupplies, Name: "Office Supplies", ParentNumber: AccountExpenses},
		{Number: AccountTravel, Name: "Travel", ParentNumber: AccountExpenses},
		{Number: AccountMeals, Name: "Meals", ParentNumber: AccountTravel},
		{Number: AccountSoftware, Name: "Software", ParentNumber: AccountExpenses},
	}
}

// ChartBuilder assembles a chart of accounts for a test.
type ChartBuilder struct {
	t        *testing.T
	accounts []model.Account
}

// NewChartBuilder creates an empty builder for the given test.
func NewChartBuilder(t *testing.T) *ChartBuilder {
	t.Helper()
	return &ChartBuilder{t: t}
}

// WithStandardAccounts adds the accounts returned by StandardAccounts.
func (b *ChartBuilder) WithStandardAccounts() *ChartBuilder {
	b.accounts = append(b.accounts, StandardAccounts()...)
	return b
}

// WithAccount adds a single account. Pass an empty parent for a root account.
func (b *ChartBuilder) WithAccount(number, name, parent string) *ChartBuilder {
	b.accounts = append(b.accounts, model.Account{Number: number, Name: name, ParentNumber: parent})
	return b
}

// Build validates the accounts and fails the test if the chart is invalid.
func (b *ChartBuilder) Build() *model.ChartOfAccounts {
	b.t.Helper()
	chart, err := model.NewChartOfAccounts(b.accounts)
	if err != nil {
		b.t.Fatalf("failed to build chart of accounts: %v", err)
	}
	return chart
}

// StandardChart is shorthand for NewChartBuilder(t).WithStandardAccounts().Build().
func StandardChart(t *testing.T) *model.ChartOfAccounts {
	t.Helper()
	return NewChartBuilder(t).WithStandardAccounts().Build()
}

// Txn builds an unmatched transaction dated FixtureDate. The amount must be a
// valid decimal string.
func Txn(id, description, amount string) *model.Transaction {
	return model.NewTransaction(id, description, decimal.RequireFromString(amount), FixtureDate)
}

// MustAccount looks up number in chart or fails the test.
func MustAccount(t *testing.T, chart *model.ChartOfAccounts, number string) *model.Account {
	t.Helper()
	acct, ok := chart.Lookup(number)
	if !ok {
		t.Fatalf("account %s not found in chart", number)
	}
	return acct
}
