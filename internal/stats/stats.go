// Package stats holds the small numeric helpers shared by the builders.
package stats

import "math"

// Round rounds half away from zero to the given number of decimals and never
// returns negative zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(x*p) / p
	if r == 0 {
		return 0
	}
	return r
}

func Mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// OrderedSet keeps unique strings in insertion order.
type OrderedSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *OrderedSet) Add(v string) {
	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *OrderedSet) Has(v string) bool {
	_, ok := s.seen[v]
	return ok
}

func (s *OrderedSet) Len() int { return len(s.items) }

// Items returns a copy, never nil.
func (s *OrderedSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
