package competitor

import (
	"sort"
	"strings"

	"review-insights-go/internal/normalize"
)

type GapType string

const (
	FeatureGap GapType = "feature_gap"
	DemandGap  GapType = "demand_gap"
	CatchupGap GapType = "catchup_gap"
)

type Gap struct {
	Type       GapType `json:"type"`
	Competitor string  `json:"competitor"`
	Signal     string  `json:"signal"`
	Confidence string  `json:"confidence"`
	Reason     string  `json:"reason"`
}

// GapAnalysis lists what competitor users praise or ask for that the main
// app's users do not, and what competitors likely shipped that main app users
// still request. Competitors are visited in name order.
func GapAnalysis(main Signals, competitors map[string]Signals) []Gap {
	mainLiked := keySet(main.Liked)
	mainAsked := keySet(main.AskedFor)

	names := make([]string, 0, len(competitors))
	for name := range competitors {
		names = append(names, name)
	}
	sort.Strings(names)

	gaps := []Gap{}
	for _, name := range names {
		c := competitors[name]
		for _, s := range c.Liked {
			if !mainLiked[s.Text] {
				gaps = append(gaps, Gap{
					Type:       FeatureGap,
					Competitor: name,
					Signal:     string(s.Text),
					Confidence: "high",
					Reason:     "Users praise this in competitor but not in main app",
				})
			}
		}
		for _, s := range c.AskedFor {
			if !mainAsked[s.Text] {
				gaps = append(gaps, Gap{
					Type:       DemandGap,
					Competitor: name,
					Signal:     string(s.Text),
					Confidence: "medium",
					Reason:     "Users request this in competitor reviews",
				})
			}
		}
		for _, shipped := range c.LikelyShipped {
			if mentionsAny(strings.ToLower(shipped), main.AskedFor) {
				gaps = append(gaps, Gap{
					Type:       CatchupGap,
					Competitor: name,
					Signal:     shipped,
					Confidence: "high",
					Reason:     "Competitor shipped this; main app users still request it",
				})
			}
		}
	}
	return gaps
}

func keySet(signals []Signal) map[normalize.IssueKey]bool {
	out := make(map[normalize.IssueKey]bool, len(signals))
	for _, s := range signals {
		out[s.Text] = true
	}
	return out
}

// mentionsAny matches a key either as written or with spaces for underscores.
func mentionsAny(text string, asked []Signal) bool {
	for _, s := range asked {
		k := string(s.Text)
		if strings.Contains(text, k) || strings.Contains(text, strings.ReplaceAll(k, "_", " ")) {
			return true
		}
	}
	return false
}
