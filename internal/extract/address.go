package extract

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// Where a delivery address came from.
const (
	AddressExtracted = "extracted"
	AddressMatched   = "matched"
	AddressFallback  = "fallback"
)

var addressSchema = llm.Object(map[string]any{
	"delivery_address": llm.NullableString(),
	"telephone_number": llm.NullableString(),
	"contact_name":     llm.NullableString(),
})

type addressReply struct {
	DeliveryAddress *string `json:"delivery_address"`
	TelephoneNumber *string `json:"telephone_number"`
	ContactName     *string `json:"contact_name"`
}

type AddressResult struct {
	Address    *string
	Source     string
	Telephone  *string
	Contact    *string
	Resolution entity.ResolutionResult
}

// Address extracts delivery details. An extracted address is snapped to one of
// the customer's known addresses when it matches; with no extracted address the
// customer's only known address is used.
func (e *Extractors) Address(ctx context.Context, entry entity.Entry, customer CustomerResult, b *reference.Bundle) (AddressResult, error) {
	var reply addressReply
	data := customerData{Text: OrderText(entry), CustomerID: customer.ID, CustomerName: customer.Name}
	if err := e.call(ctx, "address", data, addressSchema, &reply); err != nil {
		return AddressResult{}, err
	}

	out := AddressResult{
		Telephone: trimmed(reply.TelephoneNumber),
		Contact:   trimmed(reply.ContactName),
	}
	var known []entity.Address
	if customer.Resolved() {
		known = b.AddressesOf(customer.ID)
	}

	raw := strings.TrimSpace(deref(reply.DeliveryAddress))
	if raw == "" {
		if addr, ok := matching.Fallback(known); ok {
			out.Address, out.Source = &addr, AddressFallback
		}
		return out, nil
	}

	addr, res := matching.AddressResolver{Threshold: e.thresholds.Address, Overrides: e.overrides}.Resolve(raw, known)
	out.Address, out.Resolution, out.Source = &addr, res, AddressExtracted
	if res.Matched {
		out.Source = AddressMatched
	}
	return out, nil
}

func trimmed(s *string) *string {
	v := strings.TrimSpace(deref(s))
	if v == "" {
		return nil
	}
	return &v
}
