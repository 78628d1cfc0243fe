package aggregator

import (
	"fmt"
	"sort"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

type MonthlyRating struct {
	Month       string  `json:"month"`
	AvgRating   float64 `json:"avgRating"`
	ReviewCount int     `json:"reviewCount"`
}

// RatingHistory averages ratings per calendar month. Reviews without a usable
// date or rating are skipped.
func RatingHistory(reviews []types.Review) []MonthlyRating {
	buckets := map[string][]int{}
	for _, r := range reviews {
		if r.Rating == 0 {
			continue
		}
		month, ok := types.PeriodOf(r.Date)
		if !ok {
			continue
		}
		buckets[month] = append(buckets[month], r.Rating)
	}
	out := make([]MonthlyRating, 0, len(buckets))
	for month, ratings := range buckets {
		out = append(out, MonthlyRating{
			Month:       month,
			AvgRating:   stats.Round(stats.Mean(ratings), 2),
			ReviewCount: len(ratings),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

type IssueMonth struct {
	Month       string   `json:"month"`
	ReportCount int      `json:"reportCount"`
	Versions    []string `json:"versions"`
}

type IssueImpact struct {
	RatingDrop         float64 `json:"ratingDrop"`
	AffectedReviews    int     `json:"affectedReviews"`
	AffectedPercentage float64 `json:"affectedPercentage"`
	Trend              string  `json:"trend"`
}

type DeepDive struct {
	Issue           Issue        `json:"issue"`
	Impact          IssueImpact  `json:"impact"`
	Timeline        []IssueMonth `json:"timeline"`
	Recommendations []string     `json:"recommendations"`
}

// IssueDeepDive looks at one ranked issue against every analyzed review: how
// often it shows up per month and how much lower those reviews rate the app.
func IssueDeepDive(issue Issue, all []types.AnalyzedReview) DeepDive {
	var related, others []int
	months := map[string]*IssueMonth{}
	versions := map[string]*stats.OrderedSet{}
	for _, r := range all {
		if !mentions(r, issue.ID) {
			others = append(others, r.Rating)
			continue
		}
		related = append(related, r.Rating)
		month, ok := types.PeriodOf(r.Date)
		if !ok {
			continue
		}
		m, ok := months[month]
		if !ok {
			m = &IssueMonth{Month: month}
			months[month] = m
			versions[month] = &stats.OrderedSet{}
		}
		m.ReportCount++
		v := r.Version
		if v == "" {
			v = "unknown"
		}
		versions[month].Add(v)
	}

	timeline := make([]IssueMonth, 0, len(months))
	for month, m := range months {
		m.Versions = versions[month].Items()
		timeline = append(timeline, *m)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Month < timeline[j].Month })

	drop := 0.0
	if len(related) > 0 {
		drop = stats.Mean(related) - stats.Mean(others)
	}
	affected := 0.0
	if len(all) > 0 {
		affected = float64(len(related)) / float64(len(all)) * 100
	}
	trend := monthlyTrend(timeline)

	return DeepDive{
		Issue: issue,
		Impact: IssueImpact{
			RatingDrop:         stats.Round(drop, 2),
			AffectedReviews:    len(related),
			AffectedPercentage: stats.Round(affected, 1),
			Trend:              trend,
		},
		Timeline:        timeline,
		Recommendations: recommendations(issue, trend),
	}
}

func mentions(r types.AnalyzedReview, key normalize.IssueKey) bool {
	for _, tag := range r.Issues {
		if normalize.Key(tag) == key {
			return true
		}
	}
	return false
}

// monthlyTrend compares the last three months against everything before them.
func monthlyTrend(timeline []IssueMonth) string {
	if len(timeline) < 2 {
		return "stable"
	}
	split := len(timeline) - 3
	if split <= 0 {
		return "new"
	}
	avg := func(ms []IssueMonth) float64 {
		sum := 0
		for _, m := range ms {
			sum += m.ReportCount
		}
		return float64(sum) / float64(len(ms))
	}
	recent, earlier := avg(timeline[split:]), avg(timeline[:split])
	switch {
	case recent > earlier*1.5:
		return "increasing"
	case recent < earlier*0.5:
		return "decreasing"
	}
	return "stable"
}

func recommendations(issue Issue, trend string) []string {
	var out []string
	if issue.Severity == "critical" {
		out = append(out, "Immediate fix required - critical impact on user experience")
	}
	if issue.Count > 20 {
		out = append(out, "High volume of reports - prioritize in next sprint")
	}
	switch trend {
	case "increasing":
		out = append(out, "Issue reports are increasing - investigate recent changes")
	case "decreasing":
		out = append(out, "Issue appears to be improving - verify fix is working")
	}
	if len(issue.Versions) == 1 {
		out = append(out, fmt.Sprintf("Issue specific to version %s - check release notes", issue.Versions[0]))
	}
	if len(out) == 0 {
		out = append(out, "Monitor for changes in future releases")
	}
	return out
}
