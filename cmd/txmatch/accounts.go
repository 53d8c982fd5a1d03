package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/txmatch/internal/cli"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Show the chart of accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			leafOnly, _ := cmd.Flags().GetBool("leaf")
			if leafOnly {
				rows := make([][]string, 0)
				for _, acct := range a.chart.Leaves() {
					rows = append(rows, []string{acct.Number, acct.FullName()})
				}
				fmt.Fprintln(out, cli.RenderTable([]string{"Number", "Account"}, rows))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%d accounts", a.chart.Len())))
			fmt.Fprintln(out, cli.RenderAccounts(a.chart))
			return nil
		},
	}
	cmd.Flags().Bool("leaf", false, "only show accounts without children")
	return cmd
}
