package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/chartscope-portal/internal/common"
	"github.com/bobmcallan/chartscope-portal/internal/history"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var asCSV, clear bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, export or clear stored analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			if clear {
				if err := a.History.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "History cleared.")
				return nil
			}

			list, err := a.History.List(ctx)
			if err != nil {
				return err
			}
			if asCSV {
				return history.WriteCSV(cmd.OutOrStdout(), list)
			}
			stats, _ := a.History.Stats(ctx)
			writeHistory(cmd.OutOrStdout(), list, stats)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write the history as CSV")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all stored analyses")
	cmd.MarkFlagsMutuallyExclusive("csv", "clear")
	return cmd
}

func writeHistory(w io.Writer, list []history.Record, stats history.Stats) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No analyses yet.")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Symbol", "Tier", "Verdict", "Cost", "Report"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, rec := range list {
		verdict := rec.Verdict
		if verdict == "" {
			verdict = common.Placeholder
		}
		report := "summary"
		if rec.HasResults() {
			report = "full"
		}
		table.Append([]string{
			rec.ID,
			rec.Date.Local().Format("2006-01-02 15:04"),
			rec.Symbol,
			rec.Tier,
			verdict,
			common.FormatMoney(rec.Cost),
			report,
		})
	}
	table.SetFooter([]string{"", "", "", "", fmt.Sprintf("%d total", stats.Total), common.FormatMoney(stats.Spent), ""})
	table.Render()
}
