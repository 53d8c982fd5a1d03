package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/txmatch/internal/model"
)

// SheetName is the worksheet written by WriteExcel.
const SheetName = "Transactions"

// WriteCSV writes a header row and one row per transaction.
func WriteCSV(out io.Writer, transactions []*model.Transaction) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		if err := writer.Write(Row(txn)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteExcel writes a workbook with a bold, frozen header row. Amounts are
// numeric cells and dates are date cells.
func WriteExcel(out io.Writer, transactions []*model.Transaction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(Headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	rowNum := 2
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		row := excelRow(txn)
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		for _, col := range []int{colTransactionDate, colPostDate} {
			dateCell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := f.SetCellStyle(SheetName, dateCell, dateCell, dateStyle); err != nil {
				return fmt.Errorf("failed to style date: %w", err)
			}
		}
		rowNum++
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// excelRow is Row with typed dates and amount.
func excelRow(txn *model.Transaction) []any {
	text := Row(txn)
	row := make([]any, len(text))
	for i, v := range text {
		row[i] = v
	}

	row[colTransactionDate] = nil
	if !txn.Date.IsZero() {
		row[colTransactionDate] = txn.Date
	}
	row[colPostDate] = nil
	if !txn.PostDate.IsZero() {
		row[colPostDate] = txn.PostDate
	}
	amount, _ := txn.Amount.Float64()
	row[colAmount] = amount
	return row
}
