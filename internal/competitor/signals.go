// Package competitor compares the main app's review signals with competitor
// apps and reports where the competitors are ahead.
package competitor

import (
	"sort"
	"strings"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

const (
	signalLimit  = 5
	shippedLimit = 5
)

var shippedPhrases = []string{"after update", "finally added", "now works", "new version", "latest update"}

type Signal struct {
	Text  normalize.IssueKey `json:"text"`
	Count int                `json:"count"`
}

type Signals struct {
	Liked         []Signal `json:"liked"`
	Disliked      []Signal `json:"disliked"`
	AskedFor      []Signal `json:"askedFor"`
	LikelyShipped []string `json:"likelyShipped"`
}

// ExtractSignals counts praise, complaint and request tags and collects
// review texts that suggest something recently shipped.
func ExtractSignals(reviews []types.AnalyzedReview) Signals {
	return Signals{
		Liked:         countTags(reviews, types.IntentPraise),
		Disliked:      countTags(reviews, types.IntentComplaint),
		AskedFor:      countTags(reviews, types.IntentFeatureRequest),
		LikelyShipped: detectShipped(reviews),
	}
}

func countTags(reviews []types.AnalyzedReview, intent types.Intent) []Signal {
	index := map[normalize.IssueKey]int{}
	out := []Signal{}
	for _, r := range reviews {
		if r.Intent != intent {
			continue
		}
		for _, tag := range r.Issues {
			key := normalize.Key(tag)
			if key == "" {
				continue
			}
			i, ok := index[key]
			if !ok {
				i = len(out)
				index[key] = i
				out = append(out, Signal{Text: key})
			}
			out[i].Count++
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > signalLimit {
		out = out[:signalLimit]
	}
	return out
}

func detectShipped(reviews []types.AnalyzedReview) []string {
	hits := []string{}
	for _, r := range reviews {
		t := strings.ToLower(r.Text)
		for _, p := range shippedPhrases {
			if strings.Contains(t, p) {
				hits = append(hits, r.Text)
				break
			}
		}
		if len(hits) == shippedLimit {
			break
		}
	}
	return hits
}

type Sentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type App struct {
	Name    string
	Reviews []types.AnalyzedReview
}

type Comparison struct {
	Name        string    `json:"name"`
	ReviewCount int       `json:"reviewCount"`
	Rating      float64   `json:"rating"`
	Sentiment   Sentiment `json:"sentiment"`
	Liked       []Signal  `json:"liked"`
	Disliked    []Signal  `json:"disliked"`
	Requested   []Signal  `json:"requested"`
}

// Compare summarizes each competitor side by side, keyed by app id.
func Compare(competitors map[string]App) map[string]Comparison {
	out := make(map[string]Comparison, len(competitors))
	for id, app := range competitors {
		ratings := make([]int, len(app.Reviews))
		var s Sentiment
		for i, r := range app.Reviews {
			ratings[i] = r.Rating
			switch r.Intent {
			case types.IntentPraise:
				s.Positive++
			case types.IntentComplaint:
				s.Negative++
			default:
				s.Neutral++
			}
		}
		sig := ExtractSignals(app.Reviews)
		out[id] = Comparison{
			Name:        app.Name,
			ReviewCount: len(app.Reviews),
			Rating:      stats.Round(stats.Mean(ratings), 2),
			Sentiment:   s,
			Liked:       sig.Liked,
			Disliked:    sig.Disliked,
			Requested:   sig.AskedFor,
		}
	}
	return out
}
