package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/logger"
	"review-insights-go/internal/normalize"
	"review-insights-go/internal/pipeline"
)

type sheet struct {
	name   string
	header []interface{}
	rows   [][]interface{}
}

// Export writes a report as a workbook with one sheet per section.
func Export(path string, rep pipeline.Report) error {
	log := logger.New().Component("dataset").WithField("path", path)

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, s := range reportSheets(rep) {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("new sheet %s: %w", s.name, err)
		}
		if err := f.SetSheetRow(s.name, "A1", &s.header); err != nil {
			return fmt.Errorf("write %s header: %w", s.name, err)
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return fmt.Errorf("style %s header: %w", s.name, err)
		}
		for j, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", s.name, j+2, err)
			}
		}
		log.WithField("sheet", s.name).WithField("rows", len(s.rows)).Debug("sheet written")
	}

	if err := f.SaveAs(path); err != nil {
		log.WithError(err).Error("save failed")
		return fmt.Errorf("save: %w", err)
	}
	log.Info("report exported")
	return nil
}

func reportSheets(rep pipeline.Report) []sheet {
	issues := sheet{name: "Issues", header: []interface{}{"ID", "Title", "Count", "Avg Rating", "Score", "Severity", "Trend", "Versions"}}
	for _, is := range rep.Insights.Issues {
		issues.rows = append(issues.rows, []interface{}{
			string(is.ID), is.Title, is.Count, is.AvgRating, is.Score, is.Severity, is.Trend, strings.Join(is.Versions, ", "),
		})
	}

	requests := sheet{name: "Requests", header: []interface{}{"ID", "Title", "Count", "Score", "Demand", "First Requested"}}
	for _, rq := range rep.Insights.Requests {
		requests.rows = append(requests.rows, []interface{}{
			string(rq.ID), rq.Title, rq.Count, rq.Score, rq.Demand, rq.FirstRequested,
		})
	}

	strengths := sheet{name: "Strengths", header: []interface{}{"ID", "Title", "Count", "Avg Rating"}}
	for _, s := range rep.Insights.Strengths {
		strengths.rows = append(strengths.rows, []interface{}{string(s.ID), s.Title, s.Count, s.AvgRating})
	}

	tree := sheet{name: "Regression", header: []interface{}{"Issue", "Status", "Mentions", "Rating Impact", "Severity", "First Seen", "Last Seen", "Spikes"}}
	for _, k := range rep.Regression.Keys() {
		n := rep.Regression.Issues[k]
		tree.rows = append(tree.rows, []interface{}{
			string(k), string(n.Status), n.TotalMentions, n.RatingImpact, n.Severity, n.FirstSeen, n.LastSeen, len(n.Spikes),
		})
	}

	tl := sheet{name: "Timeline", header: []interface{}{"Version", "Period", "Avg Rating", "Reviews", "Dominant", "New", "Resolved", "Regressions", "Notes"}}
	for _, e := range rep.Timeline.Timeline {
		tl.rows = append(tl.rows, []interface{}{
			e.Version, e.Period, e.AvgRating, e.ReviewCount,
			joinKeys(e.DominantIssues), joinKeys(e.NewIssues), joinKeys(e.ResolvedIssues), joinKeys(e.Regressions),
			e.Notes,
		})
	}

	prio := sheet{name: "Priorities", header: []interface{}{"Issue", "Priority", "Severity", "Rating Impact", "Trend", "Lift If Fixed", "Confidence", "Recommendation"}}
	for _, p := range rep.Impact.Priorities {
		prio.rows = append(prio.rows, []interface{}{
			string(p.Issue), p.PriorityScore, p.Severity, p.RatingImpact, string(p.Trend), p.EstimatedLiftIfFixed, p.Confidence, p.Recommendation,
		})
	}

	return []sheet{issues, requests, strengths, tree, tl, prio}
}

func joinKeys(keys []normalize.IssueKey) string {
	s := make([]string, len(keys))
	for i, k := range keys {
		s[i] = string(k)
	}
	return strings.Join(s, ", ")
}
