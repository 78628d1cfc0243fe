// Package impact ranks regression-tree issues into a fix-it priority list.
package impact

import (
	"math"
	"sort"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/regression"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/timeline"
	"review-insights-go/internal/types"
)

const (
	RecommendCritical = "Critical. Fix immediately."
	RecommendHigh     = "High priority. Address in next release."
	RecommendModerate = "Moderate priority."
)

// liftFactor is the share of the rating drop assumed recoverable by a fix.
const liftFactor = 0.6

// mentionSaturation is the mention count at which evidence volume stops
// raising confidence.
const mentionSaturation = 25

type Priority struct {
	Issue                normalize.IssueKey `json:"issue"`
	Severity             float64            `json:"severity"`
	RatingImpact         float64            `json:"rating_impact"`
	Trend                regression.Status  `json:"trend"`
	AffectedVersions     []string           `json:"affected_versions"`
	PriorityScore        float64            `json:"priority_score"`
	EstimatedLiftIfFixed float64            `json:"estimated_lift_if_fixed"`
	Confidence           float64            `json:"confidence"`
	Recommendation       string             `json:"recommendation"`
}

type Summary struct {
	TopPriority        normalize.IssueKey   `json:"top_priority,omitempty"`
	HighRiskIssues     []normalize.IssueKey `json:"high_risk_issues"`
	QuickWins          []normalize.IssueKey `json:"quick_wins"`
	ExpectedRatingLift float64              `json:"expected_rating_lift"`
}

type Context struct {
	Period                      regression.PeriodRange `json:"period"`
	WorstRelease                string                 `json:"worst_release,omitempty"`
	BestRelease                 string                 `json:"best_release,omitempty"`
	MostCommonRegressionTrigger normalize.IssueKey     `json:"most_common_regression_trigger,omitempty"`
	Releases                    int                    `json:"releases"`
}

type Model struct {
	Priorities []Priority `json:"priorities"`
	Summary    Summary    `json:"summary"`
	Context    Context    `json:"context"`
}

// Build scores every issue in the tree. The timeline only feeds Context.
func Build(tree regression.Tree, tl timeline.Timeline) Model {
	keys := tree.Keys()
	raw := make(map[normalize.IssueKey]float64, len(keys))
	mentions := make(map[normalize.IssueKey]float64, len(keys))
	for _, k := range keys {
		n := tree.Issues[k]
		growth := 1.0
		if n.Status == regression.StatusRegressing {
			growth = 1.5
		}
		raw[k] = n.Severity * math.Abs(n.RatingImpact) * growth * float64(len(n.VersionCausality))
		mentions[k] = float64(n.TotalMentions)
	}
	scores := regression.Normalize(raw, mentions)

	priorities := make([]Priority, 0, len(keys))
	for _, k := range keys {
		n := tree.Issues[k]
		score := scores[k]
		priorities = append(priorities, Priority{
			Issue:                k,
			Severity:             n.Severity,
			RatingImpact:         n.RatingImpact,
			Trend:                n.Status,
			AffectedVersions:     versionsOf(n),
			PriorityScore:        score,
			EstimatedLiftIfFixed: stats.Round(-n.RatingImpact*liftFactor, 2),
			Confidence:           confidence(n),
			Recommendation:       recommend(score),
		})
	}
	sort.SliceStable(priorities, func(i, j int) bool {
		return priorities[i].PriorityScore > priorities[j].PriorityScore
	})

	return Model{
		Priorities: priorities,
		Summary:    summarize(priorities),
		Context: Context{
			Period:                      tree.Period,
			WorstRelease:                tl.Summary.WorstRelease,
			BestRelease:                 tl.Summary.BestRelease,
			MostCommonRegressionTrigger: tl.Summary.MostCommonRegressionTrigger,
			Releases:                    len(tl.Timeline),
		},
	}
}

func summarize(priorities []Priority) Summary {
	s := Summary{
		HighRiskIssues: []normalize.IssueKey{},
		QuickWins:      []normalize.IssueKey{},
	}
	if len(priorities) > 0 {
		s.TopPriority = priorities[0].Issue
	}
	lift := 0.0
	for _, p := range priorities {
		if p.PriorityScore > 0.7 {
			s.HighRiskIssues = append(s.HighRiskIssues, p.Issue)
		}
		if p.PriorityScore < 0.4 {
			s.QuickWins = append(s.QuickWins, p.Issue)
		}
		if p.PriorityScore > 0.6 {
			lift += p.EstimatedLiftIfFixed
		}
	}
	s.ExpectedRatingLift = stats.Round(lift, 2)
	return s
}

func recommend(score float64) string {
	switch {
	case score > 0.8:
		return RecommendCritical
	case score > 0.6:
		return RecommendHigh
	}
	return RecommendModerate
}

// confidence grows with severity and evidence volume, bounded to [0.70, 0.95].
func confidence(n *regression.Node) float64 {
	volume := math.Min(1, float64(n.TotalMentions)/mentionSaturation)
	c := 0.70 + 0.25*(0.5*stats.Clamp(n.Severity, 0, 1)+0.5*volume)
	return stats.Round(c, 2)
}

func versionsOf(n *regression.Node) []string {
	out := make([]string, 0, len(n.VersionCausality))
	for v := range n.VersionCausality {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return types.CompareVersions(out[i], out[j]) < 0 })
	return out
}
