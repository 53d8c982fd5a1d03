package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/txmatch/internal/cli"
	"github.com/Veraticus/txmatch/internal/engine"
	"github.com/Veraticus/txmatch/internal/export"
	"github.com/Veraticus/txmatch/internal/ingest"
	"github.com/Veraticus/txmatch/internal/llm"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/service"
)

type matchOptions struct {
	client    llm.Client
	output    string
	review    bool
	noLLM     bool
	noHistory bool
	quiet     bool
}

type matchOutcome struct {
	transactions  []*model.Transaction
	outputPath    string
	runID         string
	summary       engine.Summary
	mappingsSaved int
}

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <file>...",
		Short: "Match transactions to accounts",
		Long: `Match the transactions in one or more CSV, Excel or OFX/QFX files to the
chart of accounts and write the results.

Mappings and rules run first. Transactions still below the confidence threshold
are sent to the LLM when an API key is configured.

Examples:
  txmatch match march.csv                   # writes march_categorized.csv
  txmatch match march.csv -o out.xlsx       # Excel output
  txmatch match *.qfx --threshold 0.9       # send more to the LLM
  txmatch match march.csv --review          # confirm uncertain matches`,
		Args: cobra.MinimumNArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().StringP("output", "o", "", "output file (.csv or .xlsx, default: <input>_categorized.<ext>)")
	cmd.Flags().Float64P("threshold", "t", engine.DefaultConfidenceThreshold, "send transactions below this confidence to the LLM")
	cmd.Flags().BoolP("review", "r", false, "review uncertain matches and save confirmations as mappings")
	cmd.Flags().Bool("no-llm", false, "skip the LLM fallback pass")
	cmd.Flags().Bool("no-history", false, "do not record the run (sqlite backend)")

	_ = viper.BindPFlag("matching.threshold", cmd.Flags().Lookup("threshold"))

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := matchOptions{}
	opts.output, _ = cmd.Flags().GetString("output")
	opts.review, _ = cmd.Flags().GetBool("review")
	opts.noLLM, _ = cmd.Flags().GetBool("no-llm")
	opts.noHistory, _ = cmd.Flags().GetBool("no-history")

	outcome, err := a.match(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), args, opts)
	if err != nil {
		return err
	}

	a.logger.Info("Matching complete",
		"output", outcome.outputPath,
		"run_id", outcome.runID,
		"match_rate", fmt.Sprintf("%.1f%%", outcome.summary.MatchRate()*100))
	return nil
}

// match reads paths, runs both passes, optionally reviews, then writes the
// output and records the run. An interrupted run still writes what was matched.
func (a *app) match(ctx context.Context, in io.Reader, out io.Writer, paths []string, opts matchOptions) (*matchOutcome, error) {
	started := time.Now()

	txns, err := ingest.ReadFiles(ctx, paths, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	a.logger.Info("Loaded transactions", "files", len(paths), "transactions", len(txns))

	interrupts := cli.NewInterruptHandler(out)
	runCtx := interrupts.HandleInterrupts(ctx, true)
	defer interrupts.Stop()

	var progress *cli.Progress
	var progressFn llm.ProgressFunc
	if !opts.quiet {
		progress = cli.NewProgress(out, "Asking the LLM...")
		progressFn = progress.Update
	}

	eng, _, err := a.newEngine(runCtx, engineOptions{
		client:     opts.client,
		progress:   progressFn,
		disableLLM: opts.noLLM,
	})
	if err != nil {
		return nil, err
	}

	txns, err = eng.Process(runCtx, txns)
	if progress != nil {
		progress.Done()
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("matching failed: %w", err)
		}
		a.logger.Warn("Matching interrupted, writing partial results")
	}

	outcome := &matchOutcome{transactions: txns, summary: engine.Summarize(txns)}
	if !opts.quiet {
		fmt.Fprintln(out, cli.RenderSummary(outcome.summary, time.Since(started)))
	}

	if opts.review && !interrupts.WasInterrupted() {
		reviewer := cli.NewReviewer(in, out, a.chart, a.logger)
		decisions, err := reviewer.Review(runCtx, txns)
		if err != nil && !errors.Is(err, cli.ErrInputCancelled) {
			return nil, fmt.Errorf("review failed: %w", err)
		}
		saved, err := a.applyDecisions(ctx, decisions)
		if err != nil {
			return nil, err
		}
		outcome.mappingsSaved = saved
		outcome.summary = engine.Summarize(txns)
		if !opts.quiet {
			fmt.Fprintln(out, cli.RenderReviewStats(reviewer.Stats(), saved))
		}
	}

	outcome.outputPath = opts.output
	if outcome.outputPath == "" {
		outcome.outputPath = export.DefaultOutputPath(paths[0])
	}
	if err := export.WriteFile(outcome.outputPath, txns); err != nil {
		return nil, fmt.Errorf("failed to write results: %w", err)
	}
	if !opts.quiet {
		fmt.Fprintln(out, cli.FormatSuccess("Results written to "+outcome.outputPath))
	}

	if rs, ok := a.runStore(); ok && !opts.noHistory {
		// An interrupt cancels ctx, and the partial run is still worth keeping.
		runID, err := a.saveRun(context.WithoutCancel(ctx), rs, paths, eng.Threshold(), started, txns)
		if err != nil {
			a.logger.Warn("Failed to record run history", "error", err)
		}
		outcome.runID = runID
	}

	return outcome, nil
}

// applyDecisions applies confirmed review choices as mapping matches and saves
// each as a mapping. It returns the number of mappings saved.
func (a *app) applyDecisions(ctx context.Context, decisions []cli.Decision) (int, error) {
	saved := 0
	for _, d := range decisions {
		if !d.Confirmed() {
			continue
		}
		d.Transaction.AddMatch(d.Account, a.cfg.Matching.MappingConfidence, model.SourceRule)
		if err := a.store.AddMapping(ctx, d.Transaction.Description, d.Account.Number); err != nil {
			return saved, fmt.Errorf("failed to save mapping for %q: %w", d.Transaction.Description, err)
		}
		a.logger.Debug("Saved mapping",
			"description", d.Transaction.Description,
			"account", d.Account.Number)
		saved++
	}
	return saved, nil
}

func (a *app) saveRun(ctx context.Context, rs service.RunStore, paths []string, threshold float64, started time.Time, txns []*model.Transaction) (string, error) {
	summary := engine.Summarize(txns)
	run := &model.MatchRun{
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Input:       strings.Join(paths, ","),
		Threshold:   threshold,
		Total:       summary.Total,
		RuleMatched: summary.RuleMatched,
		LLMMatched:  summary.LLMMatched,
		Unmatched:   summary.Unmatched,
	}

	results := make([]model.MatchResult, 0, len(txns))
	for _, txn := range txns {
		if txn != nil {
			results = append(results, model.ResultFor("", txn))
		}
	}
	if err := rs.SaveRun(ctx, run, results); err != nil {
		return "", err
	}
	return run.ID, nil
}
