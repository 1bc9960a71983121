package matching

import (
	"strings"
	"unicode"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/similarity"
)

// addressScore ignores punctuation, so "5, 42001 Soria (Soria)" and
// "5, 42001, Soria, Soria" share every token.
func addressScore(a, b string) float64 {
	return similarity.TokenSet(stripPunct(a), stripPunct(b))
}

func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) {
			return ' '
		}
		return r
	}, s)
}

// AddressResolver reconciles an extracted delivery address with the
// customer's known addresses.
type AddressResolver struct {
	Threshold float64
	Overrides *Overrides
}

// Resolve returns the canonical formatted address when raw matches a known
// address, and raw itself otherwise.
func (r AddressResolver) Resolve(raw string, known []entity.Address) (string, entity.ResolutionResult) {
	refs := make([]entity.ReferenceEntity, len(known))
	byID := make(map[string]entity.Address, len(known))
	for i, a := range known {
		refs[i] = entity.ReferenceEntity{ID: a.ID, Name: a.Format(), Type: entity.EntityAddress}
		byID[a.ID] = a
	}
	res := Resolver{
		Threshold: r.Threshold,
		Overrides: r.Overrides.addresses(),
		Scorer:    addressScore,
	}.Resolve(raw, refs)
	if res.Matched {
		if a, ok := byID[res.EntityID]; ok {
			return a.Format(), res
		}
	}
	return strings.TrimSpace(raw), res
}

// Fallback picks the customer's address when exactly one is known.
func Fallback(known []entity.Address) (string, bool) {
	if len(known) != 1 {
		return "", false
	}
	return known[0].Format(), true
}
