// Package regression builds a per-issue monthly time series and flags issues
// whose mentions keep climbing.
package regression

import (
	"math"
	"sort"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

type Status string

const (
	StatusRegressing Status = "regressing"
	StatusImproving  Status = "improving"
	StatusStable     Status = "stable"
)

// spikeThreshold is the month-over-month mention increase that counts as a spike.
const spikeThreshold = 5

const unknownVersion = "unknown"

type PeriodStat struct {
	Period    string   `json:"period"`
	Count     int      `json:"count"`
	AvgRating float64  `json:"avg_rating"`
	Versions  []string `json:"versions"`
}

type Spike struct {
	Period                string   `json:"period"`
	Increase              int      `json:"increase"`
	LikelyTriggerVersions []string `json:"likely_trigger_versions"`
}

type VersionImpact struct {
	Mentions  int     `json:"mentions"`
	AvgRating float64 `json:"avg_rating"`
}

type Node struct {
	FirstSeen        string                   `json:"first_seen"`
	LastSeen         string                   `json:"last_seen"`
	Status           Status                   `json:"status"`
	TotalMentions    int                      `json:"total_mentions"`
	RatingImpact     float64                  `json:"rating_impact"`
	Severity         float64                  `json:"severity"`
	Timeline         []PeriodStat             `json:"timeline"`
	Spikes           []Spike                  `json:"spikes"`
	VersionCausality map[string]VersionImpact `json:"version_causality"`
}

type PeriodRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Summary struct {
	TotalUniqueIssues int                  `json:"total_unique_issues"`
	TopRegressions    []normalize.IssueKey `json:"top_regressions"`
}

type Tree struct {
	Period         PeriodRange                  `json:"period"`
	Issues         map[normalize.IssueKey]*Node `json:"issues"`
	Summary        Summary                      `json:"summary"`
	SkippedReviews int                          `json:"skipped_reviews"`
}

// Keys returns the issue keys in ascending order.
func (t Tree) Keys() []normalize.IssueKey {
	keys := make([]normalize.IssueKey, 0, len(t.Issues))
	for k := range t.Issues {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type periodAcc struct {
	ratings  []int
	versions stats.OrderedSet
}

type versionAcc struct {
	ratings []int
}

type issueAcc struct {
	mentions int
	periods  map[string]*periodAcc
	versions map[string]*versionAcc
}

// Build computes the regression tree. Reviews whose date cannot be bucketed
// are skipped and counted in SkippedReviews.
func Build(reviews []types.AnalyzedReview) Tree {
	accs := map[normalize.IssueKey]*issueAcc{}
	tree := Tree{
		Issues:  map[normalize.IssueKey]*Node{},
		Summary: Summary{TopRegressions: []normalize.IssueKey{}},
	}

	for _, r := range reviews {
		period, ok := types.PeriodOf(r.Date)
		if !ok {
			tree.SkippedReviews++
			continue
		}
		if tree.Period.From == "" || period < tree.Period.From {
			tree.Period.From = period
		}
		if period > tree.Period.To {
			tree.Period.To = period
		}
		version := r.Version
		if version == "" {
			version = unknownVersion
		}

		seen := map[normalize.IssueKey]bool{}
		for _, tag := range r.Issues {
			key := normalize.Key(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			acc, ok := accs[key]
			if !ok {
				acc = &issueAcc{periods: map[string]*periodAcc{}, versions: map[string]*versionAcc{}}
				accs[key] = acc
			}
			acc.mentions++

			p, ok := acc.periods[period]
			if !ok {
				p = &periodAcc{}
				acc.periods[period] = p
			}
			p.ratings = append(p.ratings, r.Rating)
			p.versions.Add(version)

			v, ok := acc.versions[version]
			if !ok {
				v = &versionAcc{}
				acc.versions[version] = v
			}
			v.ratings = append(v.ratings, r.Rating)
		}
	}

	raw := map[normalize.IssueKey]float64{}
	for key, acc := range accs {
		timeline := timelineOf(acc)
		status := Trend(timeline)
		impact := ratingImpact(acc, timeline)

		growth := 1.0
		if status == StatusRegressing {
			growth = 1.5
		}
		raw[key] = float64(acc.mentions) * math.Abs(impact) * growth

		tree.Issues[key] = &Node{
			FirstSeen:        timeline[0].Period,
			LastSeen:         timeline[len(timeline)-1].Period,
			Status:           status,
			TotalMentions:    acc.mentions,
			RatingImpact:     impact,
			Timeline:         timeline,
			Spikes:           Spikes(timeline),
			VersionCausality: causality(acc),
		}
	}

	for key, sev := range Normalize(raw, mentionsOf(tree)) {
		tree.Issues[key].Severity = sev
	}

	tree.Summary.TotalUniqueIssues = len(tree.Issues)
	tree.Summary.TopRegressions = topRegressions(tree, 3)
	return tree
}

func timelineOf(acc *issueAcc) []PeriodStat {
	out := make([]PeriodStat, 0, len(acc.periods))
	for period, p := range acc.periods {
		out = append(out, PeriodStat{
			Period:    period,
			Count:     len(p.ratings),
			AvgRating: stats.Round(stats.Mean(p.ratings), 2),
			Versions:  p.versions.Items(),
		})
	}
	// YYYY-MM is zero padded so string order is chronological
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// Trend looks at the last three periods only.
func Trend(timeline []PeriodStat) Status {
	if len(timeline) < 3 {
		return StatusStable
	}
	last := timeline[len(timeline)-3:]
	a, b, c := last[0].Count, last[1].Count, last[2].Count
	switch {
	case a < b && b < c:
		return StatusRegressing
	case a > b && b > c:
		return StatusImproving
	}
	return StatusStable
}

// Spikes flags periods whose count jumped by spikeThreshold or more over the
// previous period.
func Spikes(timeline []PeriodStat) []Spike {
	spikes := []Spike{}
	for i := 1; i < len(timeline); i++ {
		diff := timeline[i].Count - timeline[i-1].Count
		if diff >= spikeThreshold {
			versions := make([]string, len(timeline[i].Versions))
			copy(versions, timeline[i].Versions)
			spikes = append(spikes, Spike{
				Period:                timeline[i].Period,
				Increase:              diff,
				LikelyTriggerVersions: versions,
			})
		}
	}
	return spikes
}

// ratingImpact is the latest period's average minus the first period's,
// rounded once from the exact means.
func ratingImpact(acc *issueAcc, timeline []PeriodStat) float64 {
	baseline := stats.Mean(acc.periods[timeline[0].Period].ratings)
	latest := stats.Mean(acc.periods[timeline[len(timeline)-1].Period].ratings)
	return stats.Round(latest-baseline, 2)
}

func causality(acc *issueAcc) map[string]VersionImpact {
	out := make(map[string]VersionImpact, len(acc.versions))
	for version, v := range acc.versions {
		out[version] = VersionImpact{
			Mentions:  len(v.ratings),
			AvgRating: stats.Round(stats.Mean(v.ratings), 2),
		}
	}
	return out
}

func mentionsOf(tree Tree) map[normalize.IssueKey]float64 {
	out := make(map[normalize.IssueKey]float64, len(tree.Issues))
	for k, n := range tree.Issues {
		out[k] = float64(n.TotalMentions)
	}
	return out
}

// Normalize divides every raw score by the batch maximum (2 decimals). When
// the whole batch scores zero it falls back to the tie-break scores so the
// worst issue still lands on 1.0. Scores are relative to this batch only.
func Normalize(raw, fallback map[normalize.IssueKey]float64) map[normalize.IssueKey]float64 {
	scores := raw
	if maxOf(raw) == 0 {
		scores = fallback
	}
	peak := maxOf(scores)
	out := make(map[normalize.IssueKey]float64, len(raw))
	for k := range raw {
		if peak == 0 {
			out[k] = 0
			continue
		}
		out[k] = stats.Round(scores[k]/peak, 2)
	}
	return out
}

func maxOf(m map[normalize.IssueKey]float64) float64 {
	peak := 0.0
	for _, v := range m {
		peak = math.Max(peak, v)
	}
	return peak
}

func topRegressions(tree Tree, n int) []normalize.IssueKey {
	var keys []normalize.IssueKey
	for _, k := range tree.Keys() {
		if tree.Issues[k].Status == StatusRegressing {
			keys = append(keys, k)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return tree.Issues[keys[i]].Severity > tree.Issues[keys[j]].Severity
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]normalize.IssueKey, len(keys))
	copy(out, keys)
	return out
}
