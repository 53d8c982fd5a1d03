// Package ingest reads bank statement exports into unmatched transactions.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

// MaxParallelFiles bounds how many files ReadFiles parses at once.
const MaxParallelFiles = 4

// ReaderFunc parses one statement stream.
type ReaderFunc func(ctx context.Context, r io.Reader, logger *slog.Logger) ([]*model.Transaction, error)

// ReaderFor returns the reader for the file extension of path.
func ReaderFor(path string) (ReaderFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV, nil
	case ".xlsx", ".xlsm":
		return ReadExcel, nil
	case ".ofx", ".qfx":
		return ReadOFX, nil
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, path)
	}
}

// ReadFile reads a single statement file.
func ReadFile(ctx context.Context, path string, logger *slog.Logger) ([]*model.Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}
	read, err := ReaderFor(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is a user-supplied input file
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	transactions, err := read(ctx, f, logger.With("file", filepath.Base(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Info("read transactions", "file", path, "count", len(transactions))
	return transactions, nil
}

// ReadFiles reads several files concurrently and concatenates the results in
// argument order. The first failing file cancels the rest.
func ReadFiles(ctx context.Context, paths []string, logger *slog.Logger) ([]*model.Transaction, error) {
	results := make([][]*model.Transaction, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelFiles)
	for i, path := range paths {
		g.Go(func() error {
			transactions, err := ReadFile(gctx, path, logger)
			if err != nil {
				return err
			}
			results[i] = transactions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*model.Transaction
	for _, transactions := range results {
		all = append(all, transactions...)
	}
	if len(all) == 0 {
		return nil, common.ErrNoTransactions
	}
	return all, nil
}
