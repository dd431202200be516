package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/edgar-core/internal/filing"
	"github.com/sells-group/edgar-core/pkg/edgar"
)

var parseDownloadDir string

var parseCmd = &cobra.Command{
	Use:   "parse <source>",
	Short: "Parse a filing from a URL, file, tar archive, or accession number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := edgar.Parse(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printFiling(f)

		if parseDownloadDir != "" {
			if err := f.Download(parseDownloadDir, false); err != nil {
				return err
			}
			fmt.Printf("\ndocuments written to %s\n", parseDownloadDir)
		}
		return nil
	},
}

func printFiling(f *filing.FilingSGML) {
	h := f.Header
	fmt.Printf("Accession:  %s\n", h.AccessionNumber)
	fmt.Printf("Form:       %s\n", h.Form)
	if !h.FilingDate.IsZero() {
		fmt.Printf("Filed:      %s\n", h.FilingDate.Format("2006-01-02"))
	}
	if !h.PeriodOfReport.IsZero() {
		fmt.Printf("Period:     %s\n", h.PeriodOfReport.Format("2006-01-02"))
	}
	if len(h.Filers) > 0 {
		fmt.Printf("Filer:      %s (CIK %s)\n", h.Filers[0].Company.Name, h.Filers[0].Company.CIK)
	}

	fmt.Printf("\n%-4s  %-12s  %-40s  %s\n", "Seq", "Type", "Filename", "Description")
	for _, group := range [][]*filing.Attachment{f.Attachments.Documents, f.Attachments.DataFiles} {
		for _, att := range group {
			fmt.Printf("%-4s  %-12s  %-40s  %s\n",
				att.Sequence, att.Type, att.Document.Filename, att.Description)
		}
	}
}

func init() {
	parseCmd.Flags().StringVar(&parseDownloadDir, "download", "", "write the filing's documents to this directory")
	rootCmd.AddCommand(parseCmd)
}
