package actionable

import (
	"fmt"
	"strings"

	"review-insights-go/internal/aggregator"
	"review-insights-go/internal/impact"
)

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

const maxCards = 5

// Generate turns the priority list and top demand into action cards, most
// urgent first. There is always at least one card.
func Generate(model impact.Model, ins aggregator.Insights) []ActionCard {
	var cards []ActionCard
	for _, p := range model.Priorities {
		if p.PriorityScore <= 0.6 || len(cards) >= maxCards {
			break
		}
		insight := fmt.Sprintf("%s is %s with rating impact %+.2f across %d version(s)",
			p.Issue.Title(), p.Trend, p.RatingImpact, len(p.AffectedVersions))
		impactText := "Stops further rating erosion"
		if p.EstimatedLiftIfFixed > 0 {
			impactText = fmt.Sprintf("Estimated +%.2f stars if fixed", p.EstimatedLiftIfFixed)
		}
		cards = append(cards, ActionCard{
			Insight: insight,
			Action:  strings.TrimSpace(p.Recommendation + " " + actionFor(p)),
			Impact:  impactText,
		})
	}

	if len(ins.Requests) > 0 && len(cards) < maxCards {
		r := ins.Requests[0]
		if r.Demand == "high" || r.Demand == "medium" {
			cards = append(cards, ActionCard{
				Insight: fmt.Sprintf("%s requested in %d reviews (%s demand)", r.Title, r.Count, r.Demand),
				Action:  "Evaluate for roadmap inclusion and reply to requesting reviewers",
				Impact:  "Converts demand into retention",
			})
		}
	}

	if len(cards) == 0 {
		return []ActionCard{{
			Insight: "No strong regression pattern detected",
			Action:  "Monitor and collect more data",
			Impact:  "Low immediate intervention",
		}}
	}
	return cards
}

func actionFor(p impact.Priority) string {
	if len(p.AffectedVersions) == 1 {
		return fmt.Sprintf("Bisect changes shipped in %s.", p.AffectedVersions[0])
	}
	if len(p.AffectedVersions) > 1 {
		return fmt.Sprintf("Reproduce on %s first.", p.AffectedVersions[len(p.AffectedVersions)-1])
	}
	return ""
}
