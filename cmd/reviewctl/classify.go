package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"review-insights-go/internal/cache"
	"review-insights-go/internal/config"
	"review-insights-go/internal/extractor"
	"review-insights-go/internal/processor"
	"review-insights-go/internal/types"
)

func newClassifyCmd() *cobra.Command {
	var input, out string
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify raw reviews into intent, issues and summary",
		Long: `classify reads a JSON array of raw reviews and writes the analyzed reviews.
Classifications are cached by review fingerprint in the configured cache
backend. Set USE_MOCK_LLM=true to use the offline keyword classifier.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			var reviews []types.Review
			if err := json.Unmarshal(data, &reviews); err != nil {
				return fmt.Errorf("decode %s: %w", input, err)
			}

			c, err := cache.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			classifier := extractor.New(extractor.Options{
				GatewayURL:   cfg.LLMGatewayURL,
				APIKey:       cfg.LLMAPIKey,
				Model:        cfg.LLMModel,
				HTTPTimeout:  cfg.HTTPTimeout,
				MaxRetryTime: cfg.MaxRetryTime,
				Mock:         cfg.UseMockLLM,
			})
			res, err := processor.New(classifier, c, cfg.Workers).Analyze(cmd.Context(), reviews, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "classified %d reviews (%d cached, %d failed)\n",
				len(res.Reviews), res.CacheHits, res.Failed)
			return writeJSONTo(cmd.OutOrStdout(), out, res.Reviews)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "raw reviews JSON")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// writeJSONTo writes v to path, or to w when path is empty.
func writeJSONTo(w io.Writer, path string, v any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
