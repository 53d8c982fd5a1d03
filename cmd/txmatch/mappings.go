package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/txmatch/internal/cli"
	"github.com/Veraticus/txmatch/internal/export"
	"github.com/Veraticus/txmatch/internal/ingest"
	"github.com/Veraticus/txmatch/internal/llm"
	"github.com/Veraticus/txmatch/internal/pattern"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage confirmed description mappings",
		Long: `Mappings send a known description straight to an account with full
confidence, before any rule is tried.`,
	}

	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsAddCmd())
	cmd.AddCommand(mappingsSuggestCmd())

	return cmd
}

func mappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			mapping, err := a.store.LoadMappings(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load mappings: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(mapping) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No mappings yet. Confirm matches with: txmatch match <file> --review"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%d mappings", len(mapping))))
			fmt.Fprintln(out, cli.RenderMappings(mapping, a.chart))
			return nil
		},
	}
}

func mappingsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <description> <account>",
		Short: "Map a description to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			acct, ok := a.chart.Lookup(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", pattern.ErrUnknownAccount, args[1])
			}
			if err := a.store.AddMapping(cmd.Context(), args[0], acct.Number); err != nil {
				return fmt.Errorf("failed to save mapping: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Mapped %q to %s %s", args[0], acct.Number, acct.FullName())))
			return nil
		},
	}
}

func mappingsSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <file>...",
		Short: "Suggest mappings from confident LLM matches",
		Long: `Run the matching passes over the given files and list descriptions the LLM
matched with high confidence to a single account. Use --save to store them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
			save, _ := cmd.Flags().GetBool("save")
			ctx := cmd.Context()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.suggest(ctx, cmd.OutOrStdout(), args, suggestOptions{
				minConfidence: minConfidence,
				save:          save,
			})
			return err
		},
	}

	cmd.Flags().Float64("min-confidence", 0.9, "minimum LLM confidence for a suggestion")
	cmd.Flags().Bool("save", false, "store the suggested mappings")

	return cmd
}

type suggestOptions struct {
	client        llm.Client
	minConfidence float64
	save          bool
}

// suggest runs both passes over paths and lists the descriptions the LLM
// matched confidently, saving them as mappings when asked.
func (a *app) suggest(ctx context.Context, out io.Writer, paths []string, opts suggestOptions) ([]pattern.MappingSuggestion, error) {
	txns, err := ingest.ReadFiles(ctx, paths, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	eng, rm, err := a.newEngine(ctx, engineOptions{client: opts.client})
	if err != nil {
		return nil, err
	}
	if _, err := eng.Process(ctx, txns); err != nil {
		return nil, fmt.Errorf("matching failed: %w", err)
	}

	suggestions := rm.SuggestMappings(txns, opts.minConfidence)
	if len(suggestions) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No mapping suggestions."))
		return nil, nil
	}

	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		target := s.AccountNumber
		if acct, ok := a.chart.Lookup(s.AccountNumber); ok {
			target = acct.Number + " " + acct.FullName()
		}
		rows = append(rows, []string{s.Description, target, strconv.Itoa(s.Count), export.FormatConfidence(s.Confidence)})
	}
	fmt.Fprintln(out, cli.RenderTable([]string{"Description", "Account", "Seen", "Confidence"}, rows))

	if !opts.save {
		fmt.Fprintln(out, cli.FormatInfo("Run again with --save to store these mappings."))
		return suggestions, nil
	}
	for _, s := range suggestions {
		if err := a.store.AddMapping(ctx, s.Description, s.AccountNumber); err != nil {
			return suggestions, fmt.Errorf("failed to save mapping for %q: %w", s.Description, err)
		}
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Saved %d mappings", len(suggestions))))
	return suggestions, nil
}
