package constants

import (
	"strings"
)

// SKU layout: family prefix (3) + length (3) + width (3) + color code (4).
const (
	SKULength          = 13
	FamilyPrefixLength = 3
	ColorCodeLength    = 4
)

// Option families with dedicated lookup rules.
const (
	FamilyPremium = "premium"
	FamilyNeo     = "neo"
)

// Option types accepted for the premium family.
const (
	OptionGrid  = "grid"
	OptionCover = "cover"
)

// defaultColorSynonyms folds common color descriptions onto catalog names.
var defaultColorSynonyms = map[string]string{
	"gris claro":  "gris perla",
	"gris clara":  "gris perla",
	"gris light":  "gris perla",
	"light grey":  "gris perla",
	"light gray":  "gris perla",
	"gris oscuro": "gris",
	"gris oscura": "gris",
	"dark grey":   "gris",
	"dark gray":   "gris",
}

// ColorSynonyms returns a copy of the built-in color synonym table.
func ColorSynonyms() map[string]string {
	out := make(map[string]string, len(defaultColorSynonyms))
	for k, v := range defaultColorSynonyms {
		out[k] = v
	}
	return out
}

// CanonicalOptionType maps free-text option kinds onto grid/cover.
func CanonicalOptionType(input string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]string{
		"rejilla":  OptionGrid,
		"rejillas": OptionGrid,
		"grid":     OptionGrid,
		"grille":   OptionGrid,
		"cubrir":   OptionCover,
		"cover":    OptionCover,
		"tapa":     OptionCover,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	return "", false
}
