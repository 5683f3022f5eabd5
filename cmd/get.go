package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sitesoft/internal/archive"
	"github.com/JakeFAU/sitesoft/internal/crawler"
)

// newGetCmd creates the 'get' subcommand, which prints the first n stored
// records for a root URL.
func newGetCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "get <URL>",
		Short: "Get data by URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return errors.New("n must be positive")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			records, err := appInstance.Archive().Head(cmd.Context(), args[0], n)
			switch {
			case errors.Is(err, archive.ErrNotFound):
				fmt.Fprintln(cmd.OutOrStdout(), "Wrong URL")
				return err
			case err != nil:
				return err
			}
			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 0, "number of records to print (must be positive)")
	return cmd
}

func printRecords(w io.Writer, records []crawler.VisitRecord) {
	for i, record := range records {
		fmt.Fprintf(w, ">> %d. %s: \"%s\"\n", i+1, record.URL, record.Title)
	}
}
