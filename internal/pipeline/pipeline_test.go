package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/cache"
	"review-insights-go/internal/types"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func sample() []types.AnalyzedReview {
	r := func(date string, rating int, version string, intent types.Intent, issues ...string) types.AnalyzedReview {
		return types.AnalyzedReview{
			Review:         types.Review{Text: string(intent) + " " + date, Date: date, Rating: rating, Version: version},
			Classification: types.Classification{Intent: intent, Issues: issues},
		}
	}
	return []types.AnalyzedReview{
		r("2024-01-15", 2, "1.0.0", types.IntentComplaint, "login_bug"),
		r("2024-01-20", 1, "1.0.0", types.IntentComplaint, "login_bug"),
		r("2024-02-10", 4, "1.1.0", types.IntentFeatureRequest, "dark_mode"),
		r("2024-03-10", 5, "1.2.0", types.IntentPraise, "design"),
	}
}

func TestBuild(t *testing.T) {
	rep := Build(sample(), now)
	assert.Equal(t, 4, rep.Insights.Summary.TotalReviews)
	require.NotNil(t, rep.Regression.Issues["login_bug"])
	assert.Equal(t, 1.0, rep.Regression.Issues["login_bug"].Severity)
	assert.Len(t, rep.Timeline.Timeline, 3)
	assert.Len(t, rep.RatingHistory, 3)
	assert.EqualValues(t, "login_bug", rep.Impact.Summary.TopPriority)
	assert.Contains(t, rep.Memo, "Total Reviews: 4")
	assert.NotEmpty(t, rep.Actions)
}

func TestRunMatchesBuildAndMemoizes(t *testing.T) {
	mem, err := cache.NewMemory(8, time.Hour)
	require.NoError(t, err)
	e := New(mem)

	first, err := e.Run(context.Background(), sample(), now)
	require.NoError(t, err)
	assert.Equal(t, Build(sample(), now), first)
	assert.Equal(t, 1, mem.Len())

	second, err := e.Run(context.Background(), sample(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())
	assert.Equal(t, first.Insights.Summary, second.Insights.Summary)
	assert.Equal(t, first.Impact.Summary, second.Impact.Summary)
	assert.Equal(t, first.Memo, second.Memo)

	// a new day is a new memo entry because recency windows moved
	_, err = e.Run(context.Background(), sample(), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Len())
}

func TestRunDoesNotReuseReportAcrossBatches(t *testing.T) {
	mem, err := cache.NewMemory(8, time.Hour)
	require.NoError(t, err)
	e := New(mem)

	a := []types.AnalyzedReview{{
		Review:         types.Review{Text: "crashes on open", Rating: 3, Date: "2024-01-10", Version: "1.0"},
		Classification: types.Classification{Intent: types.IntentComplaint, Issues: []string{"crash"}},
	}}
	b := []types.AnalyzedReview{{
		Review:         types.Review{Text: "crashes on open", Rating: 3, Date: "2023-06-10", Version: "2.0"},
		Classification: types.Classification{Intent: types.IntentFeatureRequest, Issues: []string{"crash"}},
	}}

	_, err = e.Run(context.Background(), a, now)
	require.NoError(t, err)
	rep, err := e.Run(context.Background(), b, now)
	require.NoError(t, err)

	assert.Equal(t, 2, mem.Len())
	assert.Empty(t, rep.Insights.Issues)
	assert.Len(t, rep.Insights.Requests, 1)
	require.Len(t, rep.Timeline.Timeline, 1)
	assert.Equal(t, "2.0", rep.Timeline.Timeline[0].Version)
	assert.Equal(t, "2023-06", rep.Timeline.Timeline[0].Period)
	assert.Equal(t, Build(b, now), rep)
}

func TestRunEmptyBatch(t *testing.T) {
	rep, err := New(nil).Run(context.Background(), nil, now)
	require.NoError(t, err)
	assert.Empty(t, rep.Insights.Issues)
	assert.Empty(t, rep.Regression.Issues)
	assert.Empty(t, rep.Timeline.Timeline)
	assert.Empty(t, rep.Impact.Priorities)
	assert.Contains(t, rep.Memo, "Total Reviews: 0")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Run(ctx, sample(), now)
	assert.ErrorIs(t, err, context.Canceled)
}
