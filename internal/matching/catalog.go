package matching

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/similarity"
	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

// Catalog resolves product families, colors and options.
type Catalog struct {
	Families  []entity.Family
	Colors    []entity.Color
	Options   []entity.OptionItem
	Threshold float64
	Overrides *Overrides
}

func (c *Catalog) resolver() Resolver {
	return Resolver{Threshold: c.Threshold, Scorer: similarity.NormalizedRatio}
}

// MatchFamily resolves a family description to its catalog entry.
func (c *Catalog) MatchFamily(text string) (entity.Family, entity.ResolutionResult) {
	refs := make([]entity.ReferenceEntity, len(c.Families))
	for i, f := range c.Families {
		refs[i] = entity.ReferenceEntity{ID: f.Prefix, Name: f.Desc, Type: entity.EntityFamily}
	}
	res := c.resolver().Resolve(text, refs)
	if !res.Matched {
		return entity.Family{}, res
	}
	return entity.Family{Desc: res.EntityName, Prefix: res.EntityID}, res
}

// MatchColor resolves a color description to its 4-character code. A
// 4-digit RAL code is used as is, and synonyms are applied before scoring.
func (c *Catalog) MatchColor(text string) (string, entity.ResolutionResult) {
	trimmed := strings.TrimSpace(text)
	if isRAL(trimmed) {
		return trimmed, entity.ResolutionResult{
			Matched:    true,
			EntityID:   trimmed,
			EntityName: trimmed,
			Score:      1,
			Candidate:  text,
			Threshold:  c.Threshold,
		}
	}

	candidate := trimmed
	if canonical, ok := Lookup(c.Overrides.colors(), trimmed); ok {
		candidate = canonical
	}
	refs := make([]entity.ReferenceEntity, len(c.Colors))
	for i, col := range c.Colors {
		refs[i] = entity.ReferenceEntity{ID: col.Code, Name: col.Desc, Type: entity.EntityColor}
	}
	res := c.resolver().Resolve(candidate, refs)
	res.Candidate = text
	if !res.Matched {
		return "", res
	}
	return res.EntityID, res
}

func isRAL(s string) bool {
	if len(s) != constants.ColorCodeLength {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// BuildSKU assembles a 13-character SKU: family prefix, the larger dimension
// and the smaller dimension zero-padded to three digits, then the color code.
func BuildSKU(prefix string, length, width int, colorCode string) (string, error) {
	if width > length {
		length, width = width, length
	}
	if width < 0 {
		return "", fmt.Errorf("%w: negative dimension %d", common.ErrInvalidFieldFormat, width)
	}
	sku := fmt.Sprintf("%s%03d%03d%s", prefix, length, width, colorCode)
	if len(sku) != constants.SKULength {
		return "", fmt.Errorf("%w: sku %q has %d characters, want %d",
			common.ErrInvalidFieldFormat, sku, len(sku), constants.SKULength)
	}
	return sku, nil
}

// OptionSKU looks up the accessory SKU for family.
//
//   - premium needs size and type; it tries the color, then the default size.
//   - neo needs a color and has no fallback.
//   - every other family tries the color, then the default size.
func (c *Catalog) OptionSKU(family, colorCode, size, optionType string) (string, bool) {
	fam := textnorm.Collapse(family)
	if fam == "" {
		return "", false
	}
	if t, ok := constants.CanonicalOptionType(optionType); ok {
		optionType = t
	}
	size = strings.TrimSpace(size)

	find := func(match func(entity.OptionItem) bool) (string, bool) {
		for _, o := range c.Options {
			if textnorm.Collapse(o.Family) == fam && match(o) {
				return o.SKU, true
			}
		}
		return "", false
	}
	sameColor := func(o entity.OptionItem) bool { return colorCode != "" && o.ColorCode == colorCode }

	switch fam {
	case constants.FamilyPremium:
		if size == "" || optionType == "" {
			return "", false
		}
		sized := func(o entity.OptionItem) bool { return o.Size == size && o.Type == optionType }
		if sku, ok := find(func(o entity.OptionItem) bool { return sameColor(o) && sized(o) }); ok {
			return sku, true
		}
		return find(func(o entity.OptionItem) bool { return o.DefaultSize && sized(o) })
	case constants.FamilyNeo:
		if colorCode == "" {
			return "", false
		}
		return find(sameColor)
	default:
		if sku, ok := find(sameColor); ok {
			return sku, true
		}
		return find(func(o entity.OptionItem) bool { return o.DefaultSize })
	}
}
