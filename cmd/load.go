package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitesoft/internal/coordinator"
)

// newLoadCmd creates the 'load' subcommand, which crawls a site and stores
// the result under its root URL.
func newLoadCmd() *cobra.Command {
	var (
		depth   int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "load <URL>",
		Short: "Load website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("depth") {
				depth = appInstance.Config().Crawl.Depth
			}

			start := time.Now()
			report, err := appInstance.Coordinator().Crawl(cmd.Context(), args[0], coordinator.Options{
				Depth:   depth,
				Workers: workers,
			})
			if err != nil {
				return err
			}
			appInstance.Logger().Debug("crawl stored",
				zap.String("crawl_id", report.CrawlID),
				zap.Int("pages", len(report.Records)),
			)
			printProfile(cmd.OutOrStdout(), time.Since(start), peakMemoryMegabytes())
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, fmt.Sprintf("level of depth, 0..%d", coordinator.MaxDepth))
	cmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent workers (default from config)")
	cmd.Flags().Duration("fetch-timeout", 0, "per-page fetch timeout (default from config)")
	return cmd
}

// printProfile writes the run summary line shown after every load.
func printProfile(w io.Writer, elapsed time.Duration, peakMb int64) {
	fmt.Fprintf(w, ">> ok, execution time: %ds, peak memory usage: %dMb\n", int64(elapsed.Seconds()), peakMb)
}
