// Command reviewctl runs the review insights engine from the terminal: fetch
// store reviews, classify them and analyze a classified export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reviewctl",
		Short: "App review insights from the command line",
		Long: `reviewctl turns app store reviews into ranked issues, feature requests,
regressions and release priorities.

Example usage:
  reviewctl fetch --app 284882215 --out reviews.json
  reviewctl classify --input reviews.json --out analyzed.json
  reviewctl analyze --input analyzed.json
  reviewctl analyze --input export.xlsx --xlsx report.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// service logs share stdout with command output
			if os.Getenv("LOG_LEVEL") == "" && !verbose {
				_ = os.Setenv("LOG_LEVEL", "warn")
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newAnalyzeCmd(), newClassifyCmd(), newFetchCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
