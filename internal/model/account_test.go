package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAccounts() []Account {
	return []Account{
		{Number: "6000", Name: "Expenses"},
		{Number: "6010", Name: "Office Supplies", ParentNumber: "6000"},
		{Number: "6100", Name: "Travel", ParentNumber: "6000"},
		{Number: "6110", Name: "Airfare", ParentNumber: "6100"},
		{Number: "4000", Name: "Revenue"},
	}
}

func TestNewChartOfAccounts(t *testing.T) {
	tests := []struct {
		wantErr  error
		name     string
		accounts []Account
	}{
		{
			name:     "valid hierarchy",
			accounts: sampleAccounts(),
		},
		{
			name:     "empty chart",
			accounts: nil,
		},
		{
			name:     "missing number",
			accounts: []Account{{Name: "Nameless"}},
			wantErr:  ErrInvalidAccount,
		},
		{
			name:     "missing name",
			accounts: []Account{{Number: "1000"}},
			wantErr:  ErrInvalidAccount,
		},
		{
			name: "duplicate number",
			accounts: []Account{
				{Number: "1000", Name: "Cash"},
				{Number: " 1000 ", Name: "Cash again"},
			},
			wantErr: ErrDuplicateAccount,
		},
		{
			name: "unknown parent",
			accounts: []Account{
				{Number: "1010", Name: "Checking", ParentNumber: "1000"},
			},
			wantErr: ErrUnknownParent,
		},
		{
			name: "self parent",
			accounts: []Account{
				{Number: "1000", Name: "Cash", ParentNumber: "1000"},
			},
			wantErr: ErrAccountCycle,
		},
		{
			name: "two account cycle",
			accounts: []Account{
				{Number: "1000", Name: "A", ParentNumber: "2000"},
				{Number: "2000", Name: "B", ParentNumber: "1000"},
			},
			wantErr: ErrAccountCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chart, err := NewChartOfAccounts(tt.accounts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, chart)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.accounts), chart.Len())
		})
	}
}

func TestChartOfAccounts_Lookup(t *testing.T) {
	chart, err := NewChartOfAccounts(sampleAccounts())
	require.NoError(t, err)

	acct, ok := chart.Lookup("6110")
	require.True(t, ok)
	assert.Equal(t, "Airfare", acct.Name)
	assert.Equal(t, []string{"Expenses", "Travel", "Airfare"}, acct.Path)
	assert.Equal(t, "Expenses > Travel > Airfare", acct.FullName())

	acct, ok = chart.Lookup(" 6100 ")
	require.True(t, ok)
	assert.Equal(t, "Travel", acct.Name)

	acct, ok = chart.Lookup("9999")
	assert.False(t, ok)
	assert.Nil(t, acct)

	var nilChart *ChartOfAccounts
	_, ok = nilChart.Lookup("6000")
	assert.False(t, ok)
}

func TestChartOfAccounts_Path(t *testing.T) {
	chart, err := NewChartOfAccounts(sampleAccounts())
	require.NoError(t, err)

	path, ok := chart.Path("6010")
	require.True(t, ok)
	assert.Equal(t, []string{"Expenses", "Office Supplies"}, path)

	// The returned slice is a copy.
	path[0] = "changed"
	again, _ := chart.Path("6010")
	assert.Equal(t, "Expenses", again[0])

	_, ok = chart.Path("0000")
	assert.False(t, ok)
}

func TestChartOfAccounts_Hierarchy(t *testing.T) {
	chart, err := NewChartOfAccounts(sampleAccounts())
	require.NoError(t, err)

	assert.True(t, chart.IsLeaf("6010"))
	assert.True(t, chart.IsLeaf("4000"))
	assert.False(t, chart.IsLeaf("6000"))
	assert.False(t, chart.IsLeaf("6100"))
	assert.False(t, chart.IsLeaf("missing"))

	var leaves []string
	for _, acct := range chart.Leaves() {
		leaves = append(leaves, acct.Number)
	}
	assert.Equal(t, []string{"6010", "6110", "4000"}, leaves)

	var children []string
	for _, acct := range chart.Children("6000") {
		children = append(children, acct.Number)
	}
	assert.Equal(t, []string{"6010", "6100"}, children)

	var all []string
	for _, acct := range chart.Accounts() {
		all = append(all, acct.Number)
	}
	assert.Equal(t, []string{"6000", "6010", "6100", "6110", "4000"}, all)
}
