// Package reference holds the read-only snapshot of customers, addresses and
// catalog data that one batch is resolved against.
package reference

import (
	"context"
	"strings"
	"time"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
)

// Bundle is an immutable snapshot of reference data. Callers must not mutate it.
type Bundle struct {
	Customers   []entity.ReferenceEntity
	Addresses   map[string][]entity.Address
	EmailLookup map[string]entity.ReferenceEntity
	Families    []entity.Family
	Colors      []entity.Color
	Options     []entity.OptionItem
	LoadedAt    time.Time

	byID map[string]entity.ReferenceEntity
}

// Loader produces a fresh bundle, typically from the database.
type Loader interface {
	Load(ctx context.Context) (*Bundle, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Bundle, error)

func (f LoaderFunc) Load(ctx context.Context) (*Bundle, error) { return f(ctx) }

// Index builds the lookup tables. Loaders call it once before handing the bundle out.
func (b *Bundle) Index() *Bundle {
	b.byID = make(map[string]entity.ReferenceEntity, len(b.Customers))
	for _, c := range b.Customers {
		b.byID[c.ID] = c
	}
	if b.Addresses == nil {
		b.Addresses = map[string][]entity.Address{}
	}
	lookup := make(map[string]entity.ReferenceEntity, len(b.EmailLookup))
	for email, c := range b.EmailLookup {
		lookup[strings.ToLower(strings.TrimSpace(email))] = c
	}
	b.EmailLookup = lookup
	if b.LoadedAt.IsZero() {
		b.LoadedAt = time.Now().UTC()
	}
	return b
}

// Customer returns the customer with id.
func (b *Bundle) Customer(id string) (entity.ReferenceEntity, bool) {
	if b.byID == nil {
		for _, c := range b.Customers {
			if c.ID == id {
				return c, true
			}
		}
		return entity.ReferenceEntity{}, false
	}
	c, ok := b.byID[id]
	return c, ok
}

// CustomerByEmail looks up a customer by a known sender address.
func (b *Bundle) CustomerByEmail(email string) (entity.ReferenceEntity, bool) {
	c, ok := b.EmailLookup[strings.ToLower(strings.TrimSpace(email))]
	return c, ok
}

// AddressesOf returns the known delivery addresses of a customer.
func (b *Bundle) AddressesOf(customerID string) []entity.Address {
	return b.Addresses[customerID]
}

// Catalog exposes the product catalog for matching.
func (b *Bundle) Catalog(threshold float64, overrides *matching.Overrides) *matching.Catalog {
	return &matching.Catalog{
		Families:  b.Families,
		Colors:    b.Colors,
		Options:   b.Options,
		Threshold: threshold,
		Overrides: overrides,
	}
}
