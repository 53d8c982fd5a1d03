package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/txmatch/internal/model"
)

// ReadExcel reads the first sheet of a workbook with the same columns as
// ReadCSV.
func ReadExcel(ctx context.Context, reader io.Reader, logger *slog.Logger) ([]*model.Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sheet %q", ErrMissingColumn, sheet)
	}

	columns, err := newColumnMap(rows[0])
	if err != nil {
		return nil, err
	}

	var transactions []*model.Transaction
	for i, record := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}
		txn, err := columns.parseRecord(record)
		if err != nil {
			logger.Warn("skipping invalid row", "sheet", sheet, "row", i+2, "error", err)
			continue
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}
