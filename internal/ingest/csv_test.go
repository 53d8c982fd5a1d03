package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/txmatch/internal/common"
)

const sampleCSV = `Transaction Date,Post Date,Description,Category,Type,Amount,Memo
03/14/2024,03/15/2024,STAPLES INC #4521,Shopping,Sale,-42.10,
03/15/2024,03/16/2024,UBER TRIP,Travel,Sale,"-1,250.00",airport
not a date,03/16/2024,BROKEN ROW,,Sale,-1.00,
03/16/2024,,,,Sale,-1.00,

2024-03-17,,Client payment,,Payment,(15.00),
`

func TestReadCSV(t *testing.T) {
	transactions, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), common.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	staples := transactions[0]
	assert.NotEmpty(t, staples.ID)
	assert.Equal(t, "STAPLES INC #4521", staples.Description)
	assert.Equal(t, "Shopping", staples.Category)
	assert.Equal(t, "Sale", staples.Type)
	assert.True(t, decimal.RequireFromString("-42.10").Equal(staples.Amount))
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), staples.Date)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), staples.PostDate)
	assert.False(t, staples.IsMatched())

	uber := transactions[1]
	assert.True(t, decimal.RequireFromString("-1250").Equal(uber.Amount))
	assert.Equal(t, "airport", uber.Memo)

	payment := transactions[2]
	assert.True(t, decimal.RequireFromString("-15").Equal(payment.Amount))
	assert.True(t, payment.PostDate.IsZero())

	assert.NotEqual(t, transactions[0].ID, transactions[1].ID)
}

func TestReadCSVMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "no amount", data: "Date,Description\n03/14/2024,X\n"},
		{name: "no date", data: "Description,Amount\nX,1\n"},
		{name: "empty file", data: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.data), common.DiscardLogger())
			assert.ErrorIs(t, err, ErrMissingColumn)
		})
	}
}

func TestReadCSVDateColumnAlias(t *testing.T) {
	data := "date,DESCRIPTION,amount\n1/2/2024,Coffee,-3.50\n"
	transactions, err := ReadCSV(context.Background(), strings.NewReader(data), common.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, time.January, transactions[0].Date.Month())
	assert.Equal(t, 2, transactions[0].Date.Day())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "-42.10", want: "-42.10"},
		{input: "$1,234.56", want: "1234.56"},
		{input: "(15.00)", want: "-15"},
		{input: " 7 ", want: "7"},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func writeWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestReadExcel(t *testing.T) {
	data := writeWorkbook(t, [][]any{
		{"Transaction Date", "Description", "Type", "Amount"},
		{"03/14/2024", "STAPLES INC #4521", "Sale", "-42.10"},
		{"03/15/2024", "", "Sale", "-1.00"},
		{"03/16/2024", "DELTA AIR LINES", "Sale", "-310.00"},
	})

	transactions, err := ReadExcel(context.Background(), bytes.NewReader(data), common.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "STAPLES INC #4521", transactions[0].Description)
	assert.Equal(t, "DELTA AIR LINES", transactions[1].Description)
	assert.True(t, decimal.RequireFromString("-310").Equal(transactions[1].Amount))
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.CSV")
	require.NoError(t, os.WriteFile(first, []byte("Date,Description,Amount\n03/14/2024,FIRST,-1\n"), 0600))
	require.NoError(t, os.WriteFile(second, []byte("Date,Description,Amount\n03/14/2024,SECOND,-2\n03/15/2024,THIRD,-3\n"), 0600))

	transactions, err := ReadFiles(context.Background(), []string{first, second}, common.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, transactions, 3)
	assert.Equal(t, "FIRST", transactions[0].Description)
	assert.Equal(t, "SECOND", transactions[1].Description)
	assert.Equal(t, "THIRD", transactions[2].Description)

	_, err = ReadFiles(context.Background(), []string{first, filepath.Join(dir, "notes.txt")}, common.DiscardLogger())
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("Date,Description,Amount\n"), 0600))
	_, err = ReadFiles(context.Background(), []string{empty}, common.DiscardLogger())
	assert.ErrorIs(t, err, common.ErrNoTransactions)
}
