// Package normalize turns free-text issue tags into stable grouping keys and
// display titles.
package normalize

import (
	"strings"
	"unicode"
)

// IssueKey is the canonical identifier all aggregation is keyed by.
type IssueKey string

// Key lower-cases the tag, collapses every run of characters outside [a-z0-9]
// into a single underscore and trims underscores from both ends.
func Key(tag string) IssueKey {
	var b strings.Builder
	b.Grow(len(tag))
	pending := false
	for _, r := range strings.ToLower(tag) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return IssueKey(b.String())
}

// Title is for presentation only; it does not invert Key.
func Title(tag string) string {
	words := strings.Fields(strings.ReplaceAll(tag, "_", " "))
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

func (k IssueKey) String() string { return string(k) }

// Title renders the key for display.
func (k IssueKey) Title() string { return Title(string(k)) }
