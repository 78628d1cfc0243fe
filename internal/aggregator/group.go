package aggregator

import (
	"time"

	"review-insights-go/internal/normalize"
	"review-insights-go/internal/stats"
	"review-insights-go/internal/types"
)

type group struct {
	key       normalize.IssueKey
	title     string
	count     int
	ratingSum int
	evidence  []Evidence
	dates     []time.Time
	firstSeen string
	lastSeen  string
	first     time.Time
	last      time.Time
	versions  stats.OrderedSet
	months    stats.OrderedSet
}

// groupByKey buckets reviews by the IssueKey of each tag, in order of first
// appearance. A review counts once per key even if several tags collapse to it.
func groupByKey(reviews []types.AnalyzedReview) []*group {
	index := map[normalize.IssueKey]*group{}
	var ordered []*group
	for _, r := range reviews {
		if r.Issues == nil {
			continue
		}
		seen := map[normalize.IssueKey]bool{}
		for _, tag := range r.Issues {
			key := normalize.Key(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			g, ok := index[key]
			if !ok {
				g = &group{key: key, title: key.Title()}
				index[key] = g
				ordered = append(ordered, g)
			}
			g.add(r)
		}
	}
	return ordered
}

func (g *group) add(r types.AnalyzedReview) {
	g.count++
	g.ratingSum += r.Rating
	if len(g.evidence) < evidenceLimit {
		g.evidence = append(g.evidence, Evidence{
			Text:    r.Text,
			Title:   r.Title,
			Rating:  r.Rating,
			Date:    r.Date,
			Version: r.Version,
		})
	}
	if r.Version != "" {
		g.versions.Add(r.Version)
	}
	d, ok := types.ParseDate(r.Date)
	if !ok {
		return
	}
	g.dates = append(g.dates, d)
	g.months.Add(d.Format("2006-01"))
	if g.firstSeen == "" || d.Before(g.first) {
		g.first, g.firstSeen = d, r.Date
	}
	if g.lastSeen == "" || d.After(g.last) {
		g.last, g.lastSeen = d, r.Date
	}
}

func (g *group) avgRating() float64 {
	if g.count == 0 {
		return 0
	}
	return float64(g.ratingSum) / float64(g.count)
}

func (g *group) record() Record {
	ev := make([]Evidence, len(g.evidence))
	copy(ev, g.evidence)
	return Record{
		ID:        g.key,
		Title:     g.title,
		Count:     g.count,
		AvgRating: stats.Round(g.avgRating(), 2),
		Evidence:  ev,
	}
}

type windows struct {
	last30 int // age 0-30 days
	prev60 int // age 31-60 days
	last90 int // age 31-90 days
}

func (g *group) windows(today time.Time) windows {
	var w windows
	for _, d := range g.dates {
		age := int(today.Sub(d).Hours() / 24)
		if age < 0 {
			age = 0
		}
		switch {
		case age <= 30:
			w.last30++
		case age <= 60:
			w.prev60++
			w.last90++
		case age <= 90:
			w.last90++
		}
	}
	return w
}
