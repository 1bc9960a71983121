package matching

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

// Overrides are curated exact-match aliases that bypass fuzzy scoring.
// Keys are stored normalized; values are entity ids (customers, addresses) or
// canonical catalog names (colors).
type Overrides struct {
	Customers map[string]string `yaml:"customers"`
	Addresses map[string]string `yaml:"addresses"`
	Colors    map[string]string `yaml:"colors"`
}

// DefaultOverrides carries the built-in color synonyms and no aliases.
func DefaultOverrides() *Overrides {
	o := &Overrides{
		Customers: map[string]string{},
		Addresses: map[string]string{},
		Colors:    map[string]string{},
	}
	for k, v := range constants.ColorSynonyms() {
		o.Colors[overrideKey(k)] = v
	}
	return o
}

// ParseOverrides decodes a YAML override document on top of the defaults.
//
//	customers:
//	  "almacenes soria": "C-1042"
//	colors:
//	  "gris claro": "gris perla"
func ParseOverrides(data []byte) (*Overrides, error) {
	var raw Overrides
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	o := DefaultOverrides()
	merge(o.Customers, raw.Customers)
	merge(o.Addresses, raw.Addresses)
	merge(o.Colors, raw.Colors)
	return o, nil
}

// LoadOverrides reads path; an empty path yields the defaults.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return DefaultOverrides(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}
	return ParseOverrides(data)
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		if key := overrideKey(k); key != "" {
			dst[key] = v
		}
	}
}

func overrideKey(s string) string {
	return textnorm.Collapse(s)
}

// Lookup returns the override for candidate in table, if any.
func Lookup(table map[string]string, candidate string) (string, bool) {
	if len(table) == 0 {
		return "", false
	}
	v, ok := table[overrideKey(candidate)]
	return v, ok
}

func (o *Overrides) customers() map[string]string {
	if o == nil {
		return nil
	}
	return o.Customers
}

func (o *Overrides) addresses() map[string]string {
	if o == nil {
		return nil
	}
	return o.Addresses
}

func (o *Overrides) colors() map[string]string {
	if o == nil {
		return DefaultOverrides().Colors
	}
	return o.Colors
}
