// Package textnorm canonicalizes free text before it is compared against reference data.
package textnorm

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/orders-intake/internal/common"
)

// Normalize decomposes text (NFD), drops combining marks, lowercases and trims
// leading/trailing whitespace. Internal whitespace is left as is.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		// transform only fails on invalid state; fall back to the raw input
		stripped = text
	}
	return strings.TrimSpace(strings.ToLower(stripped))
}

// NormalizeValue normalizes a decoded value that is expected to be string-like.
// Nil normalizes to the empty string.
func NormalizeValue(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return Normalize(s), nil
	case []byte:
		return Normalize(string(s)), nil
	case *string:
		if s == nil {
			return "", nil
		}
		return Normalize(*s), nil
	case fmt.Stringer:
		return Normalize(s.String()), nil
	default:
		return "", fmt.Errorf("%w: cannot normalize %T", common.ErrInvalidInput, v)
	}
}

// Collapse normalizes and folds every run of whitespace into a single space.
func Collapse(text string) string {
	return strings.Join(strings.Fields(Normalize(text)), " ")
}
