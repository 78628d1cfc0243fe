package actionable

import (
	"fmt"
	"sort"
	"strings"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

const memoTopN = 3

type tagCount struct {
	key   normalize.IssueKey
	count int
}

// Memo renders the plain-text product feedback memo for an analyzed batch.
func Memo(reviews []types.AnalyzedReview) string {
	ratings := make([]int, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}

	var b strings.Builder
	b.WriteString("PRODUCT FEEDBACK MEMO\n\n")
	b.WriteString("KEY METRICS\n")
	fmt.Fprintf(&b, "• Total Reviews: %d\n", len(reviews))
	fmt.Fprintf(&b, "• Average Rating: %.2f\n", stats.Mean(ratings))

	sections := []struct {
		title string
		keep  func(types.AnalyzedReview) bool
	}{
		{"BIGGEST COMPLAINTS", func(r types.AnalyzedReview) bool { return r.Intent == types.IntentComplaint }},
		{"BIGGEST FEATURE REQUESTS", func(r types.AnalyzedReview) bool { return r.Intent == types.IntentFeatureRequest }},
		{"BIGGEST PRAISES", func(r types.AnalyzedReview) bool { return r.Intent == types.IntentPraise }},
		{"LOW RATING DRIVERS (1-2★)", func(r types.AnalyzedReview) bool { return r.Rating <= 2 }},
		{"MID RATING DRIVERS (3-4★)", func(r types.AnalyzedReview) bool { return r.Rating >= 3 && r.Rating <= 4 }},
		{"HIGH RATING DRIVERS (5★)", func(r types.AnalyzedReview) bool { return r.Rating == 5 }},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s\n", s.title)
		b.WriteString(bullets(topTags(reviews, s.keep)))
	}

	b.WriteString("\nRECOMMENDATIONS\n")
	b.WriteString("1. Prioritize top complaint issues to stabilize ratings.\n")
	b.WriteString("2. Evaluate most requested features for roadmap inclusion.\n")
	b.WriteString("3. Reinforce strengths driving high ratings.")
	return b.String()
}

func topTags(reviews []types.AnalyzedReview, keep func(types.AnalyzedReview) bool) []tagCount {
	index := map[normalize.IssueKey]int{}
	var counts []tagCount
	for _, r := range reviews {
		if !keep(r) {
			continue
		}
		for _, tag := range r.Issues {
			key := normalize.Key(tag)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(counts)
				index[key] = i
				counts = append(counts, tagCount{key: key})
			}
			counts[i].count++
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].count > counts[j].count })
	if len(counts) > memoTopN {
		counts = counts[:memoTopN]
	}
	return counts
}

func bullets(tags []tagCount) string {
	if len(tags) == 0 {
		return "• No strong signal\n"
	}
	var b strings.Builder
	for _, t := range tags {
		fmt.Fprintf(&b, "• %s (%d)\n", t.key, t.count)
	}
	return b.String()
}
