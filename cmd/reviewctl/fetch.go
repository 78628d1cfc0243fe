package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"review-insights-go/internal/appstore"
	"review-insights-go/internal/config"
)

func newFetchCmd() *cobra.Command {
	var appID, out string
	var days int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recent App Store reviews for an app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if days <= 0 {
				days = cfg.FetchDays
			}
			client := appstore.New(appstore.Options{
				BaseURL:      cfg.AppStoreBaseURL,
				Country:      cfg.AppStoreCountry,
				HTTPTimeout:  cfg.HTTPTimeout,
				MaxRetryTime: cfg.MaxRetryTime,
				MaxPages:     cfg.MaxPages,
			})
			reviews, err := client.FetchReviews(cmd.Context(), appID, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "fetched %d reviews for app %s\n", len(reviews), appID)
			return writeJSONTo(cmd.OutOrStdout(), out, reviews)
		},
	}
	cmd.Flags().StringVar(&appID, "app", "", "App Store app id")
	cmd.Flags().IntVar(&days, "days", 0, "only keep reviews from the last N days (default FETCH_DAYS)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	_ = cmd.MarkFlagRequired("app")
	return cmd
}
