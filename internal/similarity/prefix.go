package similarity

import (
	"github.com/agext/levenshtein"

	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

var prefixParams = levenshtein.NewParams().BonusScale(0.15)

// Prefix is an edit-distance similarity with a Winkler-style bonus for a shared
// prefix. It catches truncations such as "famicas" against "famicast sl".
func Prefix(a, b string) float64 {
	na, nb := textnorm.Normalize(a), textnorm.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return levenshtein.Match(na, nb, prefixParams)
}

// NormalizedRatio is Ratio over normalized inputs.
func NormalizedRatio(a, b string) float64 {
	return Ratio(textnorm.Normalize(a), textnorm.Normalize(b))
}
