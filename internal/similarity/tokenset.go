// Package similarity scores how alike two free-text strings are, in [0,1].
package similarity

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

// Scorer compares a candidate against a reference string.
type Scorer func(candidate, reference string) float64

// TokenSet is a token-set ratio: both inputs are normalized and split into
// word sets, and the shared words are compared against each side's extras.
// A token subset scores 1.0 and an empty side scores 0.
func TokenSet(a, b string) float64 {
	ta := tokenSet(textnorm.Normalize(a))
	tb := tokenSet(textnorm.Normalize(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 1
	}
	sort.Strings(sect)
	sort.Strings(diffAB)
	sort.Strings(diffBA)

	t0 := strings.Join(sect, " ")
	t1 := join(t0, diffAB)
	t2 := join(t0, diffBA)

	best := Ratio(t1, t2)
	if t0 == "" {
		return best
	}
	return max(best, Ratio(t0, t1), Ratio(t0, t2))
}

func join(prefix string, rest []string) string {
	tail := strings.Join(rest, " ")
	if prefix == "" {
		return tail
	}
	return prefix + " " + tail
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// Ratio is the normalized indel similarity of two strings,
// 2*LCS / (len(a)+len(b)) counted in runes. Inputs are compared as given.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	return float64(2*lcs(ra, rb)) / float64(total)
}

// lcs returns the length of the longest common subsequence.
func lcs(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
