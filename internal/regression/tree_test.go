package regression

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/types"
)

func review(date string, rating int, version string, issues ...string) types.AnalyzedReview {
	return types.AnalyzedReview{
		Review:         types.Review{Date: date, Rating: rating, Version: version},
		Classification: types.Classification{Intent: types.IntentComplaint, Issues: issues},
	}
}

// monthly builds count[i] mentions of tag in month i+1 of 2024.
func monthly(tag string, counts ...int) []types.AnalyzedReview {
	var out []types.AnalyzedReview
	for i, c := range counts {
		for j := 0; j < c; j++ {
			out = append(out, review(fmt.Sprintf("2024-%02d-%02d", i+1, j%28+1), 1+j%5, fmt.Sprintf("1.%d", i), tag))
		}
	}
	return out
}

func sampleReviews() []types.AnalyzedReview {
	return []types.AnalyzedReview{
		review("2024-01-15", 2, "1.0.0", "login_bug", "crashes"),
		review("2024-01-20", 1, "1.0.0", "login_bug"),
		review("2024-02-10", 3, "1.1.0", "slow_loading"),
		review("2024-02-15", 2, "1.1.0", "login_bug", "slow_loading"),
		review("2024-03-01", 4, "1.2.0", "minor_ui_issue"),
		review("2024-03-10", 5, "1.2.0"),
	}
}

func TestBuildStructure(t *testing.T) {
	tree := Build(sampleReviews())

	assert.Equal(t, PeriodRange{From: "2024-01", To: "2024-03"}, tree.Period)
	assert.Equal(t, 4, tree.Summary.TotalUniqueIssues)
	assert.Zero(t, tree.SkippedReviews)

	login := tree.Issues["login_bug"]
	require.NotNil(t, login)
	assert.Equal(t, 3, login.TotalMentions)
	assert.Equal(t, "2024-01", login.FirstSeen)
	assert.Equal(t, "2024-02", login.LastSeen)
	assert.Equal(t, 0.5, login.RatingImpact)
	assert.Equal(t, 1.0, login.Severity)
	assert.Equal(t, StatusStable, login.Status)
	assert.Equal(t, VersionImpact{Mentions: 2, AvgRating: 1.5}, login.VersionCausality["1.0.0"])
	assert.Equal(t, VersionImpact{Mentions: 1, AvgRating: 2}, login.VersionCausality["1.1.0"])

	for key, n := range tree.Issues {
		assert.GreaterOrEqual(t, n.Severity, 0.0, key)
		assert.LessOrEqual(t, n.Severity, 1.0, key)
		assert.Contains(t, []Status{StatusRegressing, StatusImproving, StatusStable}, n.Status)
	}
	assert.Equal(t, 0.0, tree.Issues["crashes"].Severity)
}

func TestBuildSingleIssueNormalizesToOne(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("2024-01-15", 2, "1.0.0", "login_bug"),
		review("2024-01-20", 1, "1.0.0", "login_bug"),
		review("2024-02-10", 4, "1.1.0"),
	}
	tree := Build(reviews)
	require.Len(t, tree.Issues, 1)

	login := tree.Issues["login_bug"]
	assert.Equal(t, 2, login.TotalMentions)
	require.Len(t, login.Timeline, 1)
	assert.Equal(t, PeriodStat{Period: "2024-01", Count: 2, AvgRating: 1.5, Versions: []string{"1.0.0"}}, login.Timeline[0])
	assert.Equal(t, 1.0, login.Severity)
	assert.Equal(t, PeriodRange{From: "2024-01", To: "2024-02"}, tree.Period)
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)
	assert.Empty(t, tree.Issues)
	assert.NotNil(t, tree.Issues)
	assert.Equal(t, 0, tree.Summary.TotalUniqueIssues)
	assert.Empty(t, tree.Summary.TopRegressions)

	tree = Build([]types.AnalyzedReview{review("2024-01-15", 5, "1.0.0")})
	assert.Empty(t, tree.Issues)
}

func TestTrend(t *testing.T) {
	stat := func(counts ...int) []PeriodStat {
		var out []PeriodStat
		for _, c := range counts {
			out = append(out, PeriodStat{Count: c})
		}
		return out
	}
	assert.Equal(t, StatusRegressing, Trend(stat(2, 5, 9)))
	assert.Equal(t, StatusImproving, Trend(stat(9, 5, 2)))
	assert.Equal(t, StatusStable, Trend(stat(2, 5)))
	assert.Equal(t, StatusStable, Trend(stat(2, 5, 5)))
	assert.Equal(t, StatusRegressing, Trend(stat(20, 1, 2, 3)), "only the last three periods count")
}

func TestBuildDetectsRegressionAndSpikes(t *testing.T) {
	reviews := append(monthly("battery_drain", 2, 5, 11), monthly("typo", 3, 2, 1)...)
	tree := Build(reviews)

	battery := tree.Issues["battery_drain"]
	require.NotNil(t, battery)
	assert.Equal(t, StatusRegressing, battery.Status)
	require.Len(t, battery.Spikes, 1)
	assert.Equal(t, Spike{Period: "2024-03", Increase: 6, LikelyTriggerVersions: []string{"1.2"}}, battery.Spikes[0])

	assert.Equal(t, StatusImproving, tree.Issues["typo"].Status)
	assert.Equal(t, []normalize.IssueKey{"battery_drain"}, tree.Summary.TopRegressions)
}

func TestBuildRatingImpactUsesExactMeans(t *testing.T) {
	tree := Build([]types.AnalyzedReview{
		review("2024-01-02", 2, "1.0", "sync"),
		review("2024-01-03", 2, "1.0", "sync"),
		review("2024-01-04", 3, "1.0", "sync"),
		review("2024-02-02", 4, "1.1", "sync"),
		review("2024-02-03", 5, "1.1", "sync"),
		review("2024-02-04", 5, "1.1", "sync"),
	})
	node := tree.Issues["sync"]
	require.NotNil(t, node)
	assert.Equal(t, 2.33, node.Timeline[0].AvgRating)
	assert.Equal(t, 4.67, node.Timeline[1].AvgRating)
	assert.Equal(t, 2.33, node.RatingImpact)
}

func TestBuildSkipsUndatedReviews(t *testing.T) {
	reviews := []types.AnalyzedReview{
		review("garbage", 1, "1.0", "crash"),
		review("2024-05-01", 1, "", "crash"),
	}
	tree := Build(reviews)
	assert.Equal(t, 1, tree.SkippedReviews)
	assert.Equal(t, 1, tree.Issues["crash"].TotalMentions)
	assert.Contains(t, tree.Issues["crash"].VersionCausality, "unknown")
}

func TestNormalizeHasSingleMaximum(t *testing.T) {
	raw := map[normalize.IssueKey]float64{"a": 4, "b": 2, "c": 0}
	got := Normalize(raw, nil)
	assert.Equal(t, map[normalize.IssueKey]float64{"a": 1, "b": 0.5, "c": 0}, got)

	got = Normalize(map[normalize.IssueKey]float64{"a": 0, "b": 0}, map[normalize.IssueKey]float64{"a": 1, "b": 4})
	assert.Equal(t, map[normalize.IssueKey]float64{"a": 0.25, "b": 1}, got)
}
