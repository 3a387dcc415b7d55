package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/chartscope-portal/internal/tiers"
)

func newTiersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List the analysis tiers offered by the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.Close()

			list := a.Catalog.List(cmd.Context())
			if a.Catalog.State() == tiers.StateFallback {
				fmt.Fprintln(cmd.ErrOrStderr(), "Tier catalog unavailable, showing built-in tiers.")
			}
			writeTiers(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func writeTiers(w io.Writer, list []tiers.Tier) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Tier", "Label", "Price", "Features"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range list {
		table.Append([]string{t.ID, t.Label, t.PriceDisplay, strings.Join(t.Features, ", ")})
	}
	table.Render()
}
