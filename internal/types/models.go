package types

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Intent string

const (
	IntentComplaint      Intent = "complaint"
	IntentFeatureRequest Intent = "feature_request"
	IntentPraise         Intent = "praise"
)

// Valid reports whether the intent is one the classifier is allowed to emit.
func (i Intent) Valid() bool {
	switch i {
	case IntentComplaint, IntentFeatureRequest, IntentPraise:
		return true
	}
	return false
}

type Review struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Rating  int    `json:"rating"`
	Version string `json:"version"`
	User    string `json:"user,omitempty"`
}

type Classification struct {
	Intent  Intent    `json:"intent"`
	Issues  IssueList `json:"issues"`
	Summary string    `json:"summary"`
}

type AnalyzedReview struct {
	Review
	Classification
}

// IssueList decodes leniently: anything that is not a JSON array becomes nil
// and non-string elements are dropped.
type IssueList []string

func (l *IssueList) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*l = nil
		return nil
	}
	out := make(IssueList, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads a review date. The wall-clock date is kept as written, so an
// RFC3339 value with an offset is not shifted to UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// PeriodOf returns the YYYY-MM bucket of a review date.
func PeriodOf(date string) (string, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return "", false
	}
	return t.Format("2006-01"), true
}

// CompareVersions orders release versions segment by segment, numerically
// where both segments are numbers. "1.9" sorts before "1.10".
func CompareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		x, errX := strconv.Atoi(as[i])
		y, errY := strconv.Atoi(bs[i])
		switch {
		case errX == nil && errY == nil:
			if x != y {
				return x - y
			}
		case as[i] != bs[i]:
			return strings.Compare(as[i], bs[i])
		}
	}
	return len(as) - len(bs)
}
