package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var ttmAsOf string

var ttmCmd = &cobra.Command{
	Use:   "ttm <cik> <concept>",
	Short: "Compute a trailing-twelve-month value for one concept",
	Long:  "Sums the four most recent quarters of a concept, deriving missing quarters from year-to-date values and adjusting for stock splits. Example concept: us-gaap:Revenues.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var asOf time.Time
		if ttmAsOf != "" {
			t, err := time.Parse("2006-01-02", ttmAsOf)
			if err != nil {
				return eris.Wrapf(err, "parse --as-of %q", ttmAsOf)
			}
			asOf = t
		}

		c := newCompany(args[0])
		metric, err := c.GetTTM(cmd.Context(), args[1], asOf)
		if err != nil {
			return err
		}

		fmt.Printf("TTM %s as of %s: %.2f\n", args[1], metric.AsOf.Format("2006-01-02"), metric.Value)
		for _, q := range metric.Periods {
			v, _ := q.Numeric()
			fmt.Printf("  %s %d  %s to %s  %.2f\n",
				q.FiscalPeriod, q.FiscalYear,
				q.PeriodStart.Format("2006-01-02"), q.PeriodEnd.Format("2006-01-02"), v)
		}
		if metric.HasGaps {
			fmt.Println("warning: quarters are not contiguous; the window spans a reporting gap")
		}
		return nil
	},
}

func init() {
	ttmCmd.Flags().StringVar(&ttmAsOf, "as-of", "", "compute the window ending at this date (YYYY-MM-DD)")
	rootCmd.AddCommand(ttmCmd)
}
