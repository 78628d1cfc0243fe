package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"review-insights-go/internal/logger"
	"review-insights-go/internal/types"
)

// Load reads analyzed reviews from an .xlsx export or a JSON file.
func Load(path string) ([]types.AnalyzedReview, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	case ".json":
		return LoadJSON(path)
	}
	return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
}

// LoadJSON accepts either a bare array or an object with a "reviews" array.
func LoadJSON(path string) ([]types.AnalyzedReview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	var out []types.AnalyzedReview
	if err := json.Unmarshal(data, &out); err == nil {
		return out, nil
	}
	var wrapped struct {
		Reviews []types.AnalyzedReview `json:"reviews"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return wrapped.Reviews, nil
}

type columns struct {
	text, title, date, rating, version, user, intent, issues, summary int
}

// detectColumns maps header cells to fields by name heuristics. The first
// matching header wins.
func detectColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1, -1, -1, -1}
	set := func(dst *int, i int) {
		if *dst == -1 {
			*dst = i
		}
	}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case l == "title" || strings.Contains(l, "headline"):
			set(&c.title, i)
		case strings.Contains(l, "text") || strings.Contains(l, "content") || strings.Contains(l, "body") || l == "review":
			set(&c.text, i)
		case strings.Contains(l, "date") || strings.Contains(l, "updated") || strings.Contains(l, "time"):
			set(&c.date, i)
		case strings.Contains(l, "rating") || strings.Contains(l, "star") || strings.Contains(l, "score"):
			set(&c.rating, i)
		case strings.Contains(l, "version") || l == "release":
			set(&c.version, i)
		case strings.Contains(l, "user") || strings.Contains(l, "author"):
			set(&c.user, i)
		case strings.Contains(l, "intent") || strings.Contains(l, "sentiment"):
			set(&c.intent, i)
		case strings.Contains(l, "issue") || strings.Contains(l, "tag"):
			set(&c.issues, i)
		case strings.Contains(l, "summary"):
			set(&c.summary, i)
		}
	}
	return c
}

// LoadXLSX reads the first sheet. Rows without review text or rating are
// skipped.
func LoadXLSX(path string) ([]types.AnalyzedReview, error) {
	log := logger.New().Component("dataset").WithField("path", path)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	cols := detectColumns(rows[0])
	if cols.text == -1 && cols.rating == -1 {
		return nil, fmt.Errorf("no review text or rating column in header %v", rows[0])
	}
	log.WithFields(map[string]interface{}{
		"textIdx":   cols.text,
		"ratingIdx": cols.rating,
		"dateIdx":   cols.date,
		"issuesIdx": cols.issues,
	}).Debug("detected column indices")

	cell := func(r []string, i int) string {
		if i >= 0 && i < len(r) {
			return strings.TrimSpace(r[i])
		}
		return ""
	}

	var out []types.AnalyzedReview
	skipped := 0
	for _, r := range rows[1:] {
		rec := types.AnalyzedReview{
			Review: types.Review{
				Text:    cell(r, cols.text),
				Title:   cell(r, cols.title),
				Date:    cell(r, cols.date),
				Version: cell(r, cols.version),
				User:    cell(r, cols.user),
			},
			Classification: types.Classification{
				Intent:  types.Intent(strings.ToLower(cell(r, cols.intent))),
				Issues:  splitIssues(cell(r, cols.issues)),
				Summary: cell(r, cols.summary),
			},
		}
		rating, err := strconv.Atoi(cell(r, cols.rating))
		if err != nil {
			if fl, ferr := strconv.ParseFloat(cell(r, cols.rating), 64); ferr == nil {
				rating, err = int(fl), nil
			}
		}
		if rec.Text == "" && err != nil {
			skipped++
			continue
		}
		rec.Rating = rating
		out = append(out, rec)
	}
	log.WithField("reviews", len(out)).WithField("skipped", skipped).Info("dataset loaded")
	return out, nil
}

// splitIssues accepts a JSON array or a comma/semicolon separated list.
func splitIssues(s string) types.IssueList {
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var l types.IssueList
		if err := json.Unmarshal([]byte(s), &l); err == nil {
			return l
		}
	}
	var out types.IssueList
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
