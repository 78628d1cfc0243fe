package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-insights-go/internal/pipeline"
	"review-insights-go/internal/types"
)

func writeFile(t *testing.T, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "warn")
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func analyzedSample() []types.AnalyzedReview {
	r := func(date string, rating int, version string, intent types.Intent, issues ...string) types.AnalyzedReview {
		return types.AnalyzedReview{
			Review:         types.Review{Text: "review " + date, Date: date, Rating: rating, Version: version},
			Classification: types.Classification{Intent: intent, Issues: issues},
		}
	}
	return []types.AnalyzedReview{
		r("2024-01-15", 4, "1.0.0", types.IntentPraise, "design"),
		r("2024-02-10", 2, "1.1.0", types.IntentComplaint, "login_bug"),
		r("2024-02-12", 1, "1.1.0", types.IntentComplaint, "login_bug"),
		r("2024-03-01", 4, "1.2.0", types.IntentFeatureRequest, "dark_mode"),
	}
}

func TestAnalyzeRendersTables(t *testing.T) {
	in := writeFile(t, "analyzed.json", analyzedSample())
	out, err := run(t, "analyze", "--input", in, "--now", "2024-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Reviews: 4")
	assert.Contains(t, out, "Login Bug")
	assert.Contains(t, out, "Dark Mode")
	assert.Contains(t, out, "1.1.0")
	assert.Contains(t, out, "Rating dropped from 4.0 to 1.5 with new issues: login_bug")
}

func TestAnalyzeJSONAndWorkbook(t *testing.T) {
	in := writeFile(t, "analyzed.json", analyzedSample())
	book := filepath.Join(t.TempDir(), "report.xlsx")
	out, err := run(t, "analyze", "-i", in, "--now", "2024-03-31", "--json", "--xlsx", book)
	require.NoError(t, err)

	var rep pipeline.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 4, rep.Insights.Summary.TotalReviews)
	assert.Len(t, rep.Timeline.Timeline, 3)
	assert.FileExists(t, book)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	in := writeFile(t, "analyzed.json", analyzedSample())
	_, err := run(t, "analyze", "--input", in, "--now", "March")
	assert.ErrorContains(t, err, "invalid --now")

	_, err = run(t, "analyze")
	assert.Error(t, err)
}

func TestClassifyWithMockClassifier(t *testing.T) {
	t.Setenv("USE_MOCK_LLM", "true")
	t.Setenv("CACHE_BACKEND", "memory")
	in := writeFile(t, "reviews.json", []types.Review{
		{Text: "Keeps crashing on launch", Rating: 1, Date: "2024-03-01", Version: "2.0"},
		{Text: "Please add dark mode", Rating: 4, Date: "2024-03-02", Version: "2.0"},
	})
	dst := filepath.Join(t.TempDir(), "analyzed.json")

	_, err := run(t, "classify", "--input", in, "--out", dst)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	var got []types.AnalyzedReview
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, types.IntentComplaint, got[0].Intent)
	assert.Equal(t, types.IssueList{"app_crash"}, got[0].Issues)
	assert.Equal(t, types.IntentFeatureRequest, got[1].Intent)
	assert.Equal(t, "Please add dark mode", got[1].Text)
}
