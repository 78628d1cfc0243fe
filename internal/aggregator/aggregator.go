package aggregator

import (
	"math"
	"sort"
	"time"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

const evidenceLimit = 10

type Evidence struct {
	Text    string `json:"text"`
	Title   string `json:"title,omitempty"`
	Rating  int    `json:"rating"`
	Date    string `json:"date"`
	Version string `json:"version,omitempty"`
}

// Record is the shape shared by issues, requests and strengths.
type Record struct {
	ID        normalize.IssueKey `json:"id"`
	Title     string             `json:"title"`
	Count     int                `json:"count"`
	AvgRating float64            `json:"avgRating"`
	Evidence  []Evidence         `json:"evidence"`
}

type SeverityBreakdown struct {
	Frequency float64 `json:"frequency"`
	Rating    float64 `json:"rating"`
	Recency   float64 `json:"recency"`
	Trend     float64 `json:"trend"`
}

type Issue struct {
	Record
	Score     float64           `json:"score"`
	Severity  string            `json:"severity"`
	Trend     string            `json:"trend"`
	Breakdown SeverityBreakdown `json:"breakdown"`
	FirstSeen string            `json:"firstSeen,omitempty"`
	LastSeen  string            `json:"lastSeen,omitempty"`
	Versions  []string          `json:"versions"`
}

type DemandBreakdown struct {
	Frequency   float64 `json:"frequency"`
	Recency     float64 `json:"recency"`
	Consistency float64 `json:"consistency"`
}

type Request struct {
	Record
	Score          float64         `json:"score"`
	Demand         string          `json:"demand"`
	Breakdown      DemandBreakdown `json:"breakdown"`
	FirstRequested string          `json:"firstRequested,omitempty"`
}

type Strength struct {
	Record
}

type Sentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type Summary struct {
	TotalReviews int       `json:"totalReviews"`
	AvgRating    float64   `json:"avgRating"`
	Sentiment    Sentiment `json:"sentiment"`
}

type Insights struct {
	Issues    []Issue    `json:"issues"`
	Requests  []Request  `json:"requests"`
	Strengths []Strength `json:"strengths"`
	Summary   Summary    `json:"summary"`
}

// Generate ranks issues, feature requests and strengths. now anchors the
// recency and trend windows.
func Generate(reviews []types.AnalyzedReview, now time.Time) Insights {
	out := Insights{
		Issues:    []Issue{},
		Requests:  []Request{},
		Strengths: []Strength{},
	}
	if len(reviews) == 0 {
		return out
	}

	var complaints, requests, praises []types.AnalyzedReview
	ratingSum := 0
	for _, r := range reviews {
		ratingSum += r.Rating
		switch r.Intent {
		case types.IntentComplaint:
			complaints = append(complaints, r)
		case types.IntentFeatureRequest:
			requests = append(requests, r)
		case types.IntentPraise:
			praises = append(praises, r)
		}
	}

	today := dayOf(now)
	out.Issues = issueDetails(complaints, today)
	out.Requests = requestDetails(requests, today)
	out.Strengths = strengthDetails(praises)

	out.Summary = Summary{
		TotalReviews: len(reviews),
		AvgRating:    stats.Round(float64(ratingSum)/float64(len(reviews)), 2),
		Sentiment: Sentiment{
			Positive: len(praises),
			// unrecognized intents count as neutral so the buckets cover every review
			Neutral:  len(reviews) - len(praises) - len(complaints),
			Negative: len(complaints),
		},
	}
	return out
}

func issueDetails(complaints []types.AnalyzedReview, today time.Time) []Issue {
	groups := groupByKey(complaints)
	issues := make([]Issue, 0, len(groups))
	for _, g := range groups {
		score, breakdown, trend := severityScore(g, len(complaints), today)
		issues = append(issues, Issue{
			Record:    g.record(),
			Score:     score,
			Severity:  severityBucket(score),
			Trend:     trend,
			Breakdown: breakdown,
			FirstSeen: g.firstSeen,
			LastSeen:  g.lastSeen,
			Versions:  g.versions.Items(),
		})
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Score > issues[j].Score })
	return issues
}

func requestDetails(requests []types.AnalyzedReview, today time.Time) []Request {
	groups := groupByKey(requests)
	out := make([]Request, 0, len(groups))
	for _, g := range groups {
		score, breakdown := demandScore(g, len(requests), today)
		out = append(out, Request{
			Record:         g.record(),
			Score:          score,
			Demand:         demandBucket(score),
			Breakdown:      breakdown,
			FirstRequested: g.firstSeen,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func strengthDetails(praises []types.AnalyzedReview) []Strength {
	groups := groupByKey(praises)
	out := make([]Strength, 0, len(groups))
	for _, g := range groups {
		out = append(out, Strength{Record: g.record()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// severityScore blends frequency (0-30), rating depth (0-30), recency (0-25)
// and trend (0-15).
func severityScore(g *group, totalComplaints int, today time.Time) (float64, SeverityBreakdown, string) {
	share := percent(g.count, totalComplaints)
	frequency := math.Min(30, 3*share)
	rating := stats.Clamp((5-g.avgRating())*7.5, 0, 30)

	w := g.windows(today)
	recency := math.Min(25, 0.2*percent(w.last30, g.count)+0.05*percent(w.last90, g.count))
	trendPts, trend := trendOf(w.last30, w.prev60)

	b := SeverityBreakdown{
		Frequency: stats.Round(frequency, 1),
		Rating:    stats.Round(rating, 1),
		Recency:   stats.Round(recency, 1),
		Trend:     trendPts,
	}
	total := stats.Clamp(frequency+rating+recency+trendPts, 0, 100)
	return stats.Round(total, 1), b, trend
}

// trendOf compares the last 30 days with the half-rate of the 31-60 day window.
func trendOf(last30, prev60 int) (float64, string) {
	if prev60 == 0 {
		if last30 > 0 {
			return 10, "new"
		}
		return 0, "stable"
	}
	ratio := float64(last30) / (float64(prev60) / 2)
	switch {
	case ratio > 2:
		return 15, "increasing"
	case ratio > 1.5:
		return 10, "increasing"
	case ratio > 1:
		return 5, "slightly_increasing"
	case ratio < 0.5:
		return 0, "decreasing"
	}
	return 0, "stable"
}

func severityBucket(score float64) string {
	switch {
	case score >= 70:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 30:
		return "medium"
	}
	return "low"
}

// demandScore blends frequency (0-50), recency (0-30) and consistency across
// months (0-20).
func demandScore(g *group, totalRequests int, today time.Time) (float64, DemandBreakdown) {
	frequency := math.Min(50, 5*percent(g.count, totalRequests))
	w := g.windows(today)
	recency := math.Min(30, 0.3*percent(w.last30, g.count))
	consistency := math.Min(20, 4*float64(g.months.Len()))

	b := DemandBreakdown{
		Frequency:   stats.Round(frequency, 1),
		Recency:     stats.Round(recency, 1),
		Consistency: consistency,
	}
	total := stats.Clamp(frequency+recency+consistency, 0, 100)
	return stats.Round(total, 1), b
}

func demandBucket(score float64) string {
	switch {
	case score >= 60:
		return "high"
	case score >= 35:
		return "medium"
	}
	return "low"
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
