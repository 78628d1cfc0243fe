package extractor

import (
	"strings"

	"review-insights-go/internal/types"
)

type keyword struct {
	needles []string
	tag     string
}

var complaintKeywords = []keyword{
	{[]string{"crash"}, "app_crash"},
	{[]string{"freez", "frozen", "hang"}, "app_freeze"},
	{[]string{"slow", "lag"}, "slow_performance"},
	{[]string{"login", "log in", "sign in", "password"}, "login_issue"},
	{[]string{"battery"}, "battery_drain"},
	{[]string{" ads", "advert"}, "too_many_ads"},
	{[]string{"subscription", "expensive", "price", "charged"}, "pricing"},
	{[]string{"sync"}, "sync_issue"},
	{[]string{"notification"}, "notification_issue"},
	{[]string{"bug", "broken", "error", "not working", "doesn't work"}, "general_bug"},
}

var requestKeywords = []keyword{
	{[]string{"dark mode", "dark theme"}, "dark_mode"},
	{[]string{"offline"}, "offline_mode"},
	{[]string{"export"}, "export"},
	{[]string{"widget"}, "widget"},
	{[]string{"search"}, "better_search"},
}

var praiseKeywords = []keyword{
	{[]string{"design", "beautiful", "clean"}, "design"},
	{[]string{"easy", "simple", "intuitive"}, "ease_of_use"},
	{[]string{"fast", "quick"}, "speed"},
	{[]string{"support", "customer service"}, "customer_support"},
}

var requestPhrases = []string{"please add", "wish", "would love", "would be nice", "should add", "need a", "feature request", "add a"}

// MockClassify is a deterministic keyword classifier used when USE_MOCK_LLM is
// on and by tests.
func MockClassify(text string) types.Classification {
	t := " " + strings.ToLower(text) + " "

	if tags := match(t, complaintKeywords); len(tags) > 0 {
		return types.Classification{Intent: types.IntentComplaint, Issues: tags, Summary: summarize(text)}
	}
	if containsAny(t, requestPhrases) {
		tags := match(t, requestKeywords)
		if len(tags) == 0 {
			tags = []string{"new_feature"}
		}
		return types.Classification{Intent: types.IntentFeatureRequest, Issues: tags, Summary: summarize(text)}
	}
	tags := match(t, praiseKeywords)
	if len(tags) == 0 {
		tags = []string{"overall_experience"}
	}
	return types.Classification{Intent: types.IntentPraise, Issues: tags, Summary: summarize(text)}
}

func match(t string, table []keyword) types.IssueList {
	var out types.IssueList
	for _, k := range table {
		if containsAny(t, k.needles) {
			out = append(out, k.tag)
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func summarize(text string) string {
	s := strings.TrimSpace(text)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120])
	}
	return s
}
