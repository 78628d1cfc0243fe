package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"review-insights-go/internal/dataset"
	"review-insights-go/internal/normalize"
	"review-insights-go/internal/pipeline"
)

const topRows = 10

type analyzeOptions struct {
	input  string
	now    string
	asJSON bool
	xlsx   string
}

func newAnalyzeCmd() *cobra.Command {
	var o analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build the insights report for a classified review export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "classified reviews (.json or .xlsx)")
	cmd.Flags().StringVar(&o.now, "now", "", "reference date YYYY-MM-DD for recency windows (default today)")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "print the full report as JSON")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "also write the report workbook to this path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAnalyze(w io.Writer, o analyzeOptions) error {
	now := time.Now().UTC()
	if o.now != "" {
		t, err := time.Parse("2006-01-02", o.now)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", o.now, err)
		}
		now = t
	}

	reviews, err := dataset.Load(o.input)
	if err != nil {
		return fmt.Errorf("load %s: %w", o.input, err)
	}
	rep := pipeline.Build(reviews, now)

	if o.xlsx != "" {
		if err := dataset.Export(o.xlsx, rep); err != nil {
			return err
		}
	}
	if o.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	renderReport(w, rep)
	if o.xlsx != "" {
		fmt.Fprintf(w, "\nReport workbook written to %s\n", o.xlsx)
	}
	return nil
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

func renderTable(w io.Writer, title string, header []string, rows [][]string) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(rows) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	table := newTable(w)
	table.Header(header)
	table.Bulk(rows)
	table.Render()
}

func renderReport(w io.Writer, rep pipeline.Report) {
	s := rep.Insights.Summary
	fmt.Fprintf(w, "Reviews: %d  Avg rating: %.2f  Positive/Neutral/Negative: %d/%d/%d\n",
		s.TotalReviews, s.AvgRating, s.Sentiment.Positive, s.Sentiment.Neutral, s.Sentiment.Negative)

	var issues [][]string
	for n, i := range rep.Insights.Issues {
		if n == topRows {
			break
		}
		issues = append(issues, []string{i.Title, strconv.Itoa(i.Count), f2(i.Score), i.Severity, i.Trend})
	}
	renderTable(w, "Issues", []string{"Issue", "Count", "Score", "Severity", "Trend"}, issues)

	var requests [][]string
	for n, r := range rep.Insights.Requests {
		if n == topRows {
			break
		}
		requests = append(requests, []string{r.Title, strconv.Itoa(r.Count), f2(r.Score), r.Demand})
	}
	renderTable(w, "Feature requests", []string{"Request", "Count", "Score", "Demand"}, requests)

	var prio [][]string
	for n, p := range rep.Impact.Priorities {
		if n == topRows {
			break
		}
		prio = append(prio, []string{
			string(p.Issue), f2(p.PriorityScore), string(p.Trend), f2(p.RatingImpact), f2(p.EstimatedLiftIfFixed), p.Recommendation,
		})
	}
	renderTable(w, "Priorities", []string{"Issue", "Priority", "Trend", "Rating impact", "Lift if fixed", "Recommendation"}, prio)

	var releases [][]string
	for _, e := range rep.Timeline.Timeline {
		releases = append(releases, []string{
			e.Version, e.Period, f2(e.AvgRating), strconv.Itoa(e.ReviewCount), keys(e.NewIssues), keys(e.ResolvedIssues), e.Notes,
		})
	}
	renderTable(w, "Releases", []string{"Version", "Period", "Avg", "Reviews", "New", "Resolved", "Notes"}, releases)

	if len(rep.Actions) > 0 {
		fmt.Fprintln(w, "\nNext actions")
		for _, a := range rep.Actions {
			fmt.Fprintf(w, "  - %s (%s)\n", a.Action, a.Impact)
		}
	}
}

func f2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func keys(ks []normalize.IssueKey) string {
	s := make([]string, len(ks))
	for i, k := range ks {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
