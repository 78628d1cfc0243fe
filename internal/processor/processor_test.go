package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/cache"
	"review-insights-go/internal/extractor"
	"review-insights-go/internal/types"
)

type fakeClassifier struct {
	calls int32
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (types.Classification, error) {
	atomic.AddInt32(&f.calls, 1)
	if text == "boom" {
		return types.Classification{}, errors.New("gateway down")
	}
	return extractor.MockClassify(text), nil
}

func reviews() []types.Review {
	return []types.Review{
		{Text: "App crashes on launch", Rating: 1, Version: "1.0", Date: "2024-01-01"},
		{Text: "boom", Rating: 3, Version: "1.0", Date: "2024-01-02"},
		{Text: "Please add dark mode", Rating: 4, Version: "1.1", Date: "2024-01-03"},
		{Text: "Beautiful design", Rating: 5, Version: "1.1", Date: "2024-01-04"},
	}
}

func TestAnalyzeKeepsOrderAndSurvivesFailures(t *testing.T) {
	mem, err := cache.NewMemory(16, time.Hour)
	require.NoError(t, err)
	cl := &fakeClassifier{}
	p := New(cl, mem, 3)

	var mu sync.Mutex
	var seen []int
	res, err := p.Analyze(context.Background(), reviews(), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	require.Len(t, res.Reviews, 4)

	assert.Equal(t, types.IntentComplaint, res.Reviews[0].Intent)
	assert.Equal(t, "boom", res.Reviews[1].Text)
	assert.Equal(t, types.Classification{}, res.Reviews[1].Classification)
	assert.Equal(t, types.IntentFeatureRequest, res.Reviews[2].Intent)
	assert.Equal(t, types.IntentPraise, res.Reviews[3].Intent)
	assert.Equal(t, 3, res.Classified)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.CacheHits)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, seen)

	// second pass is served from the cache except for the failure
	res, err = p.Analyze(context.Background(), reviews(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CacheHits)
	assert.Equal(t, 1, res.Failed)
	assert.EqualValues(t, 5, atomic.LoadInt32(&cl.calls))
}

func TestAnalyzeWithoutCache(t *testing.T) {
	cl := &fakeClassifier{}
	res, err := New(cl, nil, 0).Analyze(context.Background(), reviews()[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Classified)
	assert.Equal(t, types.IssueList{"app_crash"}, res.Reviews[0].Issues)
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&fakeClassifier{}, nil, 1).Analyze(ctx, reviews(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeEmpty(t *testing.T) {
	res, err := New(&fakeClassifier{}, nil, 2).Analyze(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Reviews)
}
