package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/txmatch/internal/model"
)

// ReadCSV reads a statement export with a header row. Rows that cannot be
// parsed are logged and skipped; a missing required column fails the file.
func ReadCSV(ctx context.Context, reader io.Reader, logger *slog.Logger) ([]*model.Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	csvReader := csv.NewReader(bufio.NewReader(reader))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	headers, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV headers: %w", err)
	}

	columns, err := newColumnMap(headers)
	if err != nil {
		return nil, err
	}

	var transactions []*model.Transaction
	rowNum := 1 // header row

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			logger.Warn("skipping unreadable row", "row", rowNum, "error", err)
			continue
		}
		if isBlank(record) {
			continue
		}

		txn, err := columns.parseRecord(record)
		if err != nil {
			logger.Warn("skipping invalid row", "row", rowNum, "error", err)
			continue
		}
		transactions = append(transactions, txn)

		if rowNum%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	return transactions, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if cell != "" {
			return false
		}
	}
	return true
}
