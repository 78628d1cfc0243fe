package aggregator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/types"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func review(date string, rating int, version string, intent types.Intent, issues ...string) types.AnalyzedReview {
	return types.AnalyzedReview{
		Review: types.Review{
			Text:    fmt.Sprintf("%s review %s", intent, date),
			Title:   "title",
			Date:    date,
			Rating:  rating,
			Version: version,
		},
		Classification: types.Classification{Intent: intent, Issues: issues},
	}
}

func TestGenerateEmpty(t *testing.T) {
	got := Generate(nil, now)
	assert.Empty(t, got.Issues)
	assert.Empty(t, got.Requests)
	assert.Empty(t, got.Strengths)
	assert.NotNil(t, got.Issues)
	assert.Equal(t, Summary{}, got.Summary)
}

func TestGenerateSummary(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("2024-03-01", 1, "1.0", types.IntentComplaint, "crash"),
		review("2024-03-02", 5, "1.0", types.IntentPraise, "design"),
		review("2024-03-03", 4, "1.0", types.IntentFeatureRequest, "dark mode"),
		review("2024-03-04", 3, "1.0", types.Intent(""), "crash"),
	}
	reviews[3].Issues = nil

	got := Generate(reviews, now)
	s := got.Summary
	assert.Equal(t, 4, s.TotalReviews)
	assert.Equal(t, 3.25, s.AvgRating)
	assert.Equal(t, Sentiment{Positive: 1, Neutral: 2, Negative: 1}, s.Sentiment)
	assert.Equal(t, s.TotalReviews, s.Sentiment.Positive+s.Sentiment.Neutral+s.Sentiment.Negative)
}

func TestIssueGroupingByKey(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("2024-03-01", 1, "1.0", types.IntentComplaint, "Login Bug", "login_bug"),
		review("2024-03-02", 2, "1.1", types.IntentComplaint, "login-bug!!"),
		review("2024-03-03", 3, "1.1", types.IntentComplaint, "slow"),
	}
	got := Generate(reviews, now)
	require.Len(t, got.Issues, 2)

	login := got.Issues[0]
	assert.EqualValues(t, "login_bug", login.ID)
	assert.Equal(t, "Login Bug", login.Title)
	assert.Equal(t, 2, login.Count, "tags collapsing to one key count the review once")
	assert.Equal(t, 1.5, login.AvgRating)
	assert.Equal(t, []string{"1.0", "1.1"}, login.Versions)
	assert.Equal(t, "2024-03-01", login.FirstSeen)
	assert.Equal(t, "2024-03-02", login.LastSeen)
}

func TestEvidenceIsBounded(t *testing.T) {
	var reviews []types.AnalyzedReview
	for i := 0; i < 25; i++ {
		reviews = append(reviews, review(fmt.Sprintf("2024-01-%02d", i+1), 2, "1.0", types.IntentComplaint, "crash"))
	}
	got := Generate(reviews, now)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, 25, got.Issues[0].Count)
	assert.Len(t, got.Issues[0].Evidence, evidenceLimit)
	assert.Equal(t, "2024-01-01", got.Issues[0].Evidence[0].Date, "evidence keeps insertion order")
}

func TestSeverityScoreFactors(t *testing.T) {
	// single complaint group, all one-star, all in the last 30 days
	reviews := []types.AnalyzedReview{
		review("2024-03-20", 1, "2.0", types.IntentComplaint, "crash"),
		review("2024-03-25", 1, "2.0", types.IntentComplaint, "crash"),
	}
	got := Generate(reviews, now)
	require.Len(t, got.Issues, 1)
	issue := got.Issues[0]
	assert.Equal(t, 30.0, issue.Breakdown.Frequency)
	assert.Equal(t, 30.0, issue.Breakdown.Rating)
	assert.Equal(t, 20.0, issue.Breakdown.Recency)
	assert.Equal(t, 10.0, issue.Breakdown.Trend)
	assert.Equal(t, "new", issue.Trend)
	assert.Equal(t, 90.0, issue.Score)
	assert.Equal(t, "critical", issue.Severity)
}

func TestSeverityOldFiveStarIssueIsLow(t *testing.T) {
	var reviews []types.AnalyzedReview
	for i := 0; i < 19; i++ {
		reviews = append(reviews, review("2023-01-10", 5, "1.0", types.IntentComplaint, fmt.Sprintf("other_%d", i)))
	}
	reviews = append(reviews, review("2023-01-10", 5, "1.0", types.IntentComplaint, "cosmetic"))
	got := Generate(reviews, now)
	for _, is := range got.Issues {
		assert.Equal(t, 15.0, is.Score, is.ID)
		assert.Equal(t, "low", is.Severity)
		assert.Equal(t, "stable", is.Trend)
	}
}

func TestTrendOf(t *testing.T) {
	cases := []struct {
		last30, prev60 int
		pts            float64
		label          string
	}{
		{5, 2, 15, "increasing"},
		{4, 5, 10, "increasing"},
		{3, 5, 5, "slightly_increasing"},
		{1, 6, 0, "decreasing"},
		{2, 4, 0, "stable"},
		{3, 0, 10, "new"},
		{0, 0, 0, "stable"},
	}
	for _, tc := range cases {
		pts, label := trendOf(tc.last30, tc.prev60)
		assert.Equal(t, tc.pts, pts, "%d/%d", tc.last30, tc.prev60)
		assert.Equal(t, tc.label, label, "%d/%d", tc.last30, tc.prev60)
	}
}

func TestRequestDemand(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("2024-01-10", 4, "1.0", types.IntentFeatureRequest, "dark mode"),
		review("2024-02-10", 4, "1.0", types.IntentFeatureRequest, "dark mode"),
		review("2024-03-10", 4, "1.0", types.IntentFeatureRequest, "dark mode"),
		review("2024-03-20", 4, "1.0", types.IntentFeatureRequest, "export"),
	}
	got := Generate(reviews, now)
	require.Len(t, got.Requests, 2)

	// one fresh request outranks a steady one on share and recency
	export := got.Requests[0]
	assert.EqualValues(t, "export", export.ID)
	assert.Equal(t, 84.0, export.Score)

	dark := got.Requests[1]
	assert.EqualValues(t, "dark_mode", dark.ID)
	assert.Equal(t, 50.0, dark.Breakdown.Frequency)
	assert.Equal(t, 10.0, dark.Breakdown.Recency)
	assert.Equal(t, 12.0, dark.Breakdown.Consistency)
	assert.Equal(t, 72.0, dark.Score)
	assert.Equal(t, "high", dark.Demand)
	assert.Equal(t, "2024-01-10", dark.FirstRequested)
}

func TestListsAreSortedAndBounded(t *testing.T) {
	var reviews []types.AnalyzedReview
	tags := []string{"a", "b", "c", "d"}
	for i := 0; i < 40; i++ {
		tag := tags[i%len(tags)]
		date := fmt.Sprintf("2024-%02d-%02d", 1+i%3, 1+i%27)
		reviews = append(reviews,
			review(date, 1+i%5, "1.0", types.IntentComplaint, tag, tags[(i+1)%len(tags)]),
			review(date, 1+i%5, "1.0", types.IntentFeatureRequest, tag),
			review(date, 5, "1.0", types.IntentPraise, tags[i%2]),
		)
	}
	got := Generate(reviews, now)
	for i := 1; i < len(got.Issues); i++ {
		assert.GreaterOrEqual(t, got.Issues[i-1].Score, got.Issues[i].Score)
	}
	for i := 1; i < len(got.Requests); i++ {
		assert.GreaterOrEqual(t, got.Requests[i-1].Score, got.Requests[i].Score)
	}
	for i := 1; i < len(got.Strengths); i++ {
		assert.GreaterOrEqual(t, got.Strengths[i-1].Count, got.Strengths[i].Count)
	}
	for _, is := range got.Issues {
		assert.GreaterOrEqual(t, is.Score, 0.0)
		assert.LessOrEqual(t, is.Score, 100.0)
	}
	for _, r := range got.Requests {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 100.0)
	}
}

func TestMalformedDatesStillCount(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("yesterday", 2, "1.0", types.IntentComplaint, "crash"),
		review("2024-03-30", 2, "1.0", types.IntentComplaint, "crash"),
	}
	got := Generate(reviews, now)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, 2, got.Issues[0].Count)
	assert.Equal(t, "2024-03-30", got.Issues[0].FirstSeen)
}
