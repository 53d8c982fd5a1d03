package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/txmatch/internal/cli"
	"github.com/Veraticus/txmatch/internal/export"
	"github.com/Veraticus/txmatch/internal/model"
	"github.com/Veraticus/txmatch/internal/pattern"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage matching rules",
		Long:  `List, add, remove, validate and try out the rules used by the first matching pass.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesRemoveCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesValidateCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.store.LoadRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No rules yet. Add one with: txmatch rules add"))
				return nil
			}
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%d rules", len(rules))))
			fmt.Fprintln(out, cli.RenderRules(rules, a.chart))
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Long: `Add a rule that assigns matching descriptions to an account.

Examples:
  txmatch rules add --pattern "STAPLES" --account 6000
  txmatch rules add --pattern "^UBER\s+EATS" --regex --account 6110 --priority 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rule := model.Rule{}
			rule.Name, _ = cmd.Flags().GetString("name")
			rule.Pattern, _ = cmd.Flags().GetString("pattern")
			rule.AccountNumber, _ = cmd.Flags().GetString("account")
			rule.Priority, _ = cmd.Flags().GetInt("priority")
			rule.Confidence, _ = cmd.Flags().GetFloat64("confidence")
			rule.IsRegex, _ = cmd.Flags().GetBool("regex")

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := pattern.CheckRule(a.chart, rule); err != nil {
				return err
			}
			rules, err := a.store.LoadRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			rules = append(rules, rule)
			if err := a.store.SaveRules(cmd.Context(), rules); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Added "+rule.String()))
			return nil
		},
	}

	cmd.Flags().String("name", "", "rule name")
	cmd.Flags().StringP("pattern", "p", "", "substring or regular expression to match")
	cmd.Flags().StringP("account", "a", "", "target account number")
	cmd.Flags().Int("priority", 0, "higher priorities win ties")
	cmd.Flags().Float64("confidence", 0.9, "confidence assigned to matches (0-1)")
	cmd.Flags().Bool("regex", false, "treat the pattern as a regular expression")
	_ = cmd.MarkFlagRequired("pattern")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func rulesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number>",
		Short: "Remove a rule by its number in rules list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule number %q", args[0])
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.store.LoadRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			if n < 1 || n > len(rules) {
				return fmt.Errorf("rule %d does not exist (have %d)", n, len(rules))
			}
			removed := rules[n-1]
			rules = append(rules[:n-1], rules[n:]...)
			if err := a.store.SaveRules(cmd.Context(), rules); err != nil {
				return fmt.Errorf("failed to save rules: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Removed "+removed.String()))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>",
		Short: "Show which mapping or rules match a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rm, err := a.ruleMatcher(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), describeRuleMatch(rm, a.chart, args[0]))
			return nil
		},
	}
}

// describeRuleMatch explains how the first pass resolves description.
func describeRuleMatch(rm *pattern.RuleMatcher, chart *model.ChartOfAccounts, description string) string {
	var body string
	if acct, key, ok := rm.LookupMapping(description); ok {
		body += fmt.Sprintf("%s Mapping %q → %s %s\n", cli.RuleIcon, key, acct.Number, acct.FullName())
	}

	rules := rm.MatchingRules(description)
	if len(rules) > 0 {
		body += fmt.Sprintf("%s Matching rules, best first:\n", cli.RuleIcon)
		body += cli.RenderRules(rules, chart) + "\n"
	}

	txn := model.NewTransaction("test", description, decimal.Zero, time.Now())
	rm.MatchTransaction(txn)
	if m, ok := txn.CurrentMatch(); ok {
		body += "\n" + cli.FormatSuccess(fmt.Sprintf("Result: %s %s (%s)",
			m.Account.Number, m.Account.FullName(), export.FormatConfidence(m.Confidence)))
	} else {
		body += cli.FormatWarning("No mapping or rule matches; this would go to the LLM.")
	}
	return cli.RenderBox(description, body)
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report rules and mappings that would be skipped",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rules, err := a.store.LoadRules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load rules: %w", err)
			}
			mapping, err := a.store.LoadMappings(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load mappings: %w", err)
			}

			out := cmd.OutOrStdout()
			problems := pattern.ValidateRules(a.chart, rules)
			unknown := pattern.ValidateMapping(a.chart, mapping)
			for _, p := range problems {
				fmt.Fprintln(out, cli.FormatError(p.String()))
			}
			for _, key := range unknown {
				fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("mapping %q: account %s not in chart", key, mapping[key])))
			}
			if len(problems)+len(unknown) > 0 {
				return fmt.Errorf("%d invalid rules, %d invalid mappings", len(problems), len(unknown))
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d rules and %d mappings are valid", len(rules), len(mapping))))
			return nil
		},
	}
}
