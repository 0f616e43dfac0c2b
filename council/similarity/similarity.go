// Package similarity decides whether a submitted question repeats one that
// is already published.
package similarity

import (
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultThreshold is the ratio a pair must exceed to count as a duplicate.
const DefaultThreshold = 0.8

// Gate compares candidate text against a corpus of published texts.
type Gate struct {
	// Threshold is exclusive: a ratio equal to it is not a duplicate.
	Threshold float64
}

// NewGate returns a Gate using threshold, or DefaultThreshold when threshold
// is outside (0, 1].
func NewGate(threshold float64) Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Gate{Threshold: threshold}
}

// IsDuplicate reports whether any corpus entry is more similar to candidate
// than the threshold allows. Empty candidates are never duplicates.
func (g Gate) IsDuplicate(candidate string, corpus []string) bool {
	_, ok := g.Match(candidate, corpus)
	return ok
}

// Match returns the index of the first corpus entry exceeding the threshold.
func (g Gate) Match(candidate string, corpus []string) (int, bool) {
	threshold := g.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if candidate == "" {
		return -1, false
	}
	a := runes(normalize(candidate))
	for i, existing := range corpus {
		if ratio(a, runes(normalize(existing))) > threshold {
			return i, true
		}
	}
	return -1, false
}

// Ratio is 2*M/T over case-normalized runes, where M is the total size of the
// matching blocks and T the combined length of both texts.
func Ratio(a, b string) float64 {
	return ratio(runes(normalize(a)), runes(normalize(b)))
}

func ratio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	return difflib.NewMatcher(a, b).Ratio()
}

// normalize lowercases s; a Caser keeps state so one is built per call.
func normalize(s string) string {
	return cases.Lower(language.Und).String(s)
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
