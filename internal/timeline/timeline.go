// Package timeline groups reviews by release and month and diffs each
// bucket's issue set against the chronologically previous bucket.
package timeline

import (
	"fmt"
	"sort"
	"strings"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

const dominantLimit = 3

type Entry struct {
	Version        string               `json:"version"`
	Period         string               `json:"period"`
	AvgRating      float64              `json:"avg_rating"`
	ReviewCount    int                  `json:"review_count"`
	DominantIssues []normalize.IssueKey `json:"dominant_issues"`
	NewIssues      []normalize.IssueKey `json:"new_issues"`
	ResolvedIssues []normalize.IssueKey `json:"resolved_issues"`
	Regressions    []normalize.IssueKey `json:"regressions"`
	Notes          string               `json:"notes"`
}

type Summary struct {
	WorstRelease                string             `json:"worst_release,omitempty"`
	BestRelease                 string             `json:"best_release,omitempty"`
	MostCommonRegressionTrigger normalize.IssueKey `json:"most_common_regression_trigger,omitempty"`
}

type Timeline struct {
	Timeline       []Entry `json:"timeline"`
	Summary        Summary `json:"summary"`
	SkippedReviews int     `json:"skipped_reviews"`
}

type bucket struct {
	version string
	period  string
	ratings []int
	counts  map[normalize.IssueKey]int
	order   []normalize.IssueKey
}

// ranked orders the bucket's issues by local frequency, first appearance on ties.
func (b *bucket) ranked() []normalize.IssueKey {
	out := make([]normalize.IssueKey, len(b.order))
	copy(out, b.order)
	sort.SliceStable(out, func(i, j int) bool { return b.counts[out[i]] > b.counts[out[j]] })
	return out
}

// Build produces one entry per (version, month) present in the data, sorted by
// month. Reviews with undatable dates are skipped.
func Build(reviews []types.AnalyzedReview) Timeline {
	index := map[string]*bucket{}
	var buckets []*bucket
	skipped := 0
	for _, r := range reviews {
		period, ok := types.PeriodOf(r.Date)
		if !ok {
			skipped++
			continue
		}
		id := r.Version + "::" + period
		b, ok := index[id]
		if !ok {
			b = &bucket{version: r.Version, period: period, counts: map[normalize.IssueKey]int{}}
			index[id] = b
			buckets = append(buckets, b)
		}
		b.ratings = append(b.ratings, r.Rating)
		for _, tag := range r.Issues {
			key := normalize.Key(tag)
			if key == "" {
				continue
			}
			if _, seen := b.counts[key]; !seen {
				b.order = append(b.order, key)
			}
			b.counts[key]++
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].period < buckets[j].period })

	entries := make([]Entry, 0, len(buckets))
	for i, b := range buckets {
		curr := b.ranked()
		avg := stats.Mean(b.ratings)
		e := Entry{
			Version:        b.version,
			Period:         b.period,
			AvgRating:      stats.Round(avg, 2),
			ReviewCount:    len(b.ratings),
			DominantIssues: head(curr, dominantLimit),
			NewIssues:      []normalize.IssueKey{},
			ResolvedIssues: []normalize.IssueKey{},
			Regressions:    []normalize.IssueKey{},
		}
		if i > 0 {
			prev := buckets[i-1]
			prevAvg := stats.Mean(prev.ratings)
			e.NewIssues = missingFrom(curr, prev.counts)
			e.ResolvedIssues = missingFrom(prev.ranked(), b.counts)
			if avg < prevAvg && len(e.NewIssues) > 0 {
				e.Regressions = append(e.Regressions, e.NewIssues...)
				e.Notes = fmt.Sprintf("Rating dropped from %.1f to %.1f with new issues: %s",
					prevAvg, avg, joinKeys(e.Regressions))
			}
		}
		entries = append(entries, e)
	}

	return Timeline{
		Timeline:       entries,
		Summary:        summarize(entries),
		SkippedReviews: skipped,
	}
}

func summarize(entries []Entry) Summary {
	var s Summary
	if len(entries) == 0 {
		return s
	}
	worst, best := entries[0], entries[0]
	counts := map[normalize.IssueKey]int{}
	var order []normalize.IssueKey
	for _, e := range entries {
		if e.AvgRating < worst.AvgRating {
			worst = e
		}
		if e.AvgRating > best.AvgRating {
			best = e
		}
		for _, k := range e.Regressions {
			if _, ok := counts[k]; !ok {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	s.WorstRelease = worst.Version
	s.BestRelease = best.Version
	for _, k := range order {
		if counts[k] > counts[s.MostCommonRegressionTrigger] {
			s.MostCommonRegressionTrigger = k
		}
	}
	return s
}

func missingFrom(keys []normalize.IssueKey, other map[normalize.IssueKey]int) []normalize.IssueKey {
	out := []normalize.IssueKey{}
	for _, k := range keys {
		if _, ok := other[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func head(keys []normalize.IssueKey, n int) []normalize.IssueKey {
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]normalize.IssueKey, len(keys))
	copy(out, keys)
	return out
}

func joinKeys(keys []normalize.IssueKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
