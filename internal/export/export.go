// Package export writes matched transactions to CSV or Excel.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

const dateLayout = "01/02/2006"

// Headers are the output columns in order.
var Headers = []string{
	"Transaction Date",
	"Post Date",
	"Description",
	"Category",
	"Type",
	"Amount",
	"Memo",
	"Account Number",
	"Account Name",
	"Account Full Path",
	"Match Confidence",
	"Match Source",
	"Alternative Matches",
	"Needs Review",
}

// Column positions used when a writer needs typed cells.
const (
	colTransactionDate = 0
	colPostDate        = 1
	colAmount          = 5
)

// Row renders one transaction with its current match and alternatives.
func Row(txn *model.Transaction) []string {
	row := []string{
		formatDate(txn.Date),
		formatDate(txn.PostDate),
		txn.Description,
		txn.Category,
		txn.Type,
		txn.Amount.StringFixed(2),
		txn.Memo,
		"", "", "",
		FormatConfidence(txn.Confidence()),
		string(txn.Source()),
		FormatAlternatives(txn.OtherMatches()),
		"no",
	}
	if acct := txn.Account(); acct != nil {
		row[7] = acct.Number
		row[8] = acct.Name
		row[9] = acct.FullName()
	}
	if txn.NeedsReview() {
		row[13] = "yes"
	}
	return row
}

// FormatConfidence renders a confidence as a percentage.
func FormatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f%%", confidence*100)
}

// FormatAlternatives renders candidates as "6000 - Office Supplies (85.00%)".
func FormatAlternatives(matches []model.Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("%s - %s (%s)", m.Account.Number, m.Account.Name, FormatConfidence(m.Confidence)))
	}
	return strings.Join(parts, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// DefaultOutputPath derives "<input>_categorized.<ext>" next to the input.
// Statement formats that cannot be written back become CSV.
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	switch strings.ToLower(ext) {
	case ".csv", ".xlsx":
	default:
		ext = ".csv"
	}
	return base + "_categorized" + ext
}

// WriteFile writes transactions to path in the format given by its extension.
func WriteFile(path string, transactions []*model.Transaction) error {
	var write func(io.Writer, []*model.Transaction) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".xlsx":
		write = WriteExcel
	default:
		return fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // output path chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}

	if err := write(f, transactions); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file %q: %w", path, err)
	}
	return nil
}
