package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/txmatch/internal/model"
)

// Row errors. A row failing with one of these is skipped, not fatal.
var (
	ErrMissingColumn = errors.New("required column not found")
	ErrInvalidRow    = errors.New("invalid row")
)

// Column headers recognised in tabular statements. Lookup is case-insensitive.
const (
	ColumnTransactionDate = "Transaction Date"
	ColumnDate            = "Date"
	ColumnPostDate        = "Post Date"
	ColumnDescription     = "Description"
	ColumnCategory        = "Category"
	ColumnType            = "Type"
	ColumnAmount          = "Amount"
	ColumnMemo            = "Memo"
)

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"02-Jan-2006",
	time.RFC3339,
}

// columnMap indexes header positions by lower-cased name.
type columnMap map[string]int

func newColumnMap(headers []string) (columnMap, error) {
	columns := make(columnMap, len(headers))
	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\ufeff")))
		if _, exists := columns[key]; !exists {
			columns[key] = i
		}
	}

	for _, col := range []string{ColumnDescription, ColumnAmount} {
		if !columns.has(col) {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	if !columns.has(ColumnTransactionDate) && !columns.has(ColumnDate) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnTransactionDate)
	}
	return columns, nil
}

func (c columnMap) has(name string) bool {
	_, ok := c[strings.ToLower(name)]
	return ok
}

// get returns the trimmed cell for name, or "" when the column or cell is absent.
func (c columnMap) get(record []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseRecord converts one data row into an unmatched transaction.
func (c columnMap) parseRecord(record []string) (*model.Transaction, error) {
	description := c.get(record, ColumnDescription)
	if description == "" {
		return nil, fmt.Errorf("%w: missing description", ErrInvalidRow)
	}

	amount, err := ParseAmount(c.get(record, ColumnAmount))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	rawDate := c.get(record, ColumnTransactionDate)
	if rawDate == "" {
		rawDate = c.get(record, ColumnDate)
	}
	date, err := ParseDate(rawDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	txn := model.NewTransaction(uuid.NewString(), description, amount, date)
	if raw := c.get(record, ColumnPostDate); raw != "" {
		if posted, err := ParseDate(raw); err == nil {
			txn.PostDate = posted
		}
	}
	txn.Category = c.get(record, ColumnCategory)
	txn.Type = c.get(record, ColumnType)
	txn.Memo = c.get(record, ColumnMemo)
	return txn, nil
}

// ParseDate accepts the common statement date layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseAmount parses a signed amount. Currency symbols, thousands separators
// and accounting parentheses are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("missing amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q", s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}
