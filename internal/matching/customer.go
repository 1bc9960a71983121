package matching

import (
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/similarity"
	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

const (
	prefixGate       = 0.70
	singleGroupBoost = 0.10
	multiGroupBoost  = 0.15
	surnameBoost     = 0.03
	maxSurnameBoost  = 0.06
	givenNamePenalty = 0.02
	maxGivenPenalty  = 0.04
)

type nameForm struct {
	personal   bool
	normalized string
	keywords   []string
}

func customerForm(name string) nameForm {
	if textnorm.IsPersonal(name) {
		return nameForm{personal: true, normalized: textnorm.Personal(name)}
	}
	return nameForm{normalized: textnorm.Business(name), keywords: textnorm.BuyingGroupKeywords(name)}
}

// CustomerScorer scores a customer name that may be a company or a person.
// Companies are compared on their canonical business form and get a boost for
// shared buying-group keywords. People are compared order-insensitively, with
// shared surnames weighing more than shared given names.
func CustomerScorer(candidate, reference string) float64 {
	a, b := customerForm(candidate), customerForm(reference)

	score := similarity.TokenSet(a.normalized, b.normalized)
	if score >= prefixGate {
		score = max(score, similarity.Prefix(a.normalized, b.normalized))
	}

	switch {
	case a.personal && b.personal:
		score = personalAdjust(a.normalized, b.normalized, score)
	case !a.personal && !b.personal:
		score += groupBoost(a.keywords, b.keywords)
	}
	return min(max(score, 0), 1)
}

func groupBoost(a, b []string) float64 {
	shared := 0
	for _, kw := range a {
		for _, other := range b {
			if kw == other {
				shared++
				break
			}
		}
	}
	switch {
	case shared == 0:
		return 0
	case shared == 1:
		return singleGroupBoost
	default:
		return multiGroupBoost
	}
}

func personalAdjust(a, b string, score float64) float64 {
	other := make(map[string]struct{})
	for _, tok := range strings.Fields(b) {
		other[tok] = struct{}{}
	}
	var surnames, given int
	for _, tok := range strings.Fields(a) {
		if _, ok := other[tok]; !ok {
			continue
		}
		if textnorm.IsSurname(tok) {
			surnames++
		}
		if textnorm.IsGivenName(tok) {
			given++
		}
	}
	switch {
	case surnames > 0:
		return score + min(float64(surnames)*surnameBoost, maxSurnameBoost)
	case given > 0:
		return score - min(float64(given)*givenNamePenalty, maxGivenPenalty)
	}
	return score
}

// NewCustomerResolver scores with CustomerScorer and applies the customer overrides.
func NewCustomerResolver(threshold float64, o *Overrides) Resolver {
	return Resolver{Threshold: threshold, Overrides: o.customers(), Scorer: CustomerScorer}
}
