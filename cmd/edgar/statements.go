package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-core/pkg/edgar"
)

var (
	statementsType    string
	statementsPeriod  string
	statementsPeriods int
)

var statementsCmd = &cobra.Command{
	Use:   "statements <cik>",
	Short: "Print a company's stitched financial statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newCompany(args[0])

		var (
			st  *edgar.Statement
			err error
		)
		switch statementsType {
		case "income":
			st, err = c.IncomeStatement(cmd.Context(), statementsPeriod, statementsPeriods)
		case "balance":
			st, err = c.BalanceSheet(cmd.Context(), statementsPeriod, statementsPeriods)
		case "cashflow":
			st, err = c.CashFlow(cmd.Context(), statementsPeriod, statementsPeriods)
		default:
			return eris.Errorf("unknown statement type %q (want income, balance, or cashflow)", statementsType)
		}
		if err != nil {
			return err
		}

		if st.Entity != "" {
			fmt.Println(st.Entity)
		}
		fmt.Print(st.String())
		return nil
	},
}

// newCompany builds the Company handle with the configured cache and limits.
func newCompany(cik string) *edgar.Company {
	var opts []edgar.CompanyOption
	if cfg.Cache.Dir != "" {
		opts = append(opts, edgar.WithCacheDir(cfg.Cache.Dir))
	}
	if idx != nil {
		opts = append(opts, edgar.WithETagStore(idx))
	}
	return edgar.NewCompany(cik, opts...)
}

func init() {
	statementsCmd.Flags().StringVar(&statementsType, "type", "income", "statement type: income, balance, cashflow")
	statementsCmd.Flags().StringVar(&statementsPeriod, "period", "annual", "period view: annual, quarterly, ttm")
	statementsCmd.Flags().IntVar(&statementsPeriods, "periods", 0, "number of period columns (0 for the default)")
	rootCmd.AddCommand(statementsCmd)
}
