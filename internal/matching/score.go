package matching

import (
	"math"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/pmezard/go-difflib/difflib"
)

// Scorer compares two strings and returns a similarity in [0, 100].
type Scorer func(a, b string) int

// Score returns the partial ratio of a and b in [0, 100].
//
// Both strings are lowercased. Identical strings score 100, an empty string scores 0.
// The result is not symmetric in general.
func Score(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b && a != "" {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	matcher := difflib.NewMatcher(runeStrings(shorter), runeStrings(longer))

	best := 0.0
	for _, block := range matcher.GetMatchingBlocks() {
		start := max(block.B-block.A, 0)
		end := min(start+len(shorter), len(longer))
		window := longer[start:end]

		r := ratio(shorter, window)
		if r > 0.995 {
			return 100
		}
		best = max(best, r)
	}

	return int(math.RoundToEven(best * 100))
}

// ratio is the indel similarity 2*LCS/(len(a)+len(b)).
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 0
	}
	lcs := edlib.LCS(string(a), string(b))
	return 2 * float64(lcs) / float64(total)
}

func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
