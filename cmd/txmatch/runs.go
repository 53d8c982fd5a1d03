package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/txmatch/internal/cli"
	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/export"
	"github.com/Veraticus/txmatch/internal/service"
)

var errNoRunHistory = common.NewUserError("Run history needs the sqlite backend (storage.backend: sqlite)", nil)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded matching runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func (a *app) requireRunStore() (service.RunStore, error) {
	rs, ok := a.runStore()
	if !ok {
		return nil, errNoRunHistory
	}
	return rs, nil
}

func runsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rs, err := a.requireRunStore()
			if err != nil {
				return err
			}
			runs, err := rs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No runs recorded yet."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to show (0 = all)")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rs, err := a.requireRunStore()
			if err != nil {
				return err
			}
			results, err := rs.GetRunResults(cmd.Context(), args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("No run with ID "+args[0], err)
			}
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				review := ""
				if r.NeedsReview {
					review = cli.WarningIcon
				}
				rows = append(rows, []string{
					r.Description,
					r.Amount.StringFixed(2),
					r.AccountNumber,
					string(r.Source),
					export.FormatConfidence(r.Confidence),
					review,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable(
				[]string{"Description", "Amount", "Account", "Source", "Confidence", "Review"}, rows))
			return nil
		},
	}
}
