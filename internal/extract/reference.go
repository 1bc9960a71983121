package extract

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

var referenceSchema = llm.Object(map[string]any{
	"reference_nos": llm.ArrayOf(llm.NullableString()),
}, "reference_nos")

type referenceReply struct {
	ReferenceNos []*string `json:"reference_nos"`
}

type customerData struct {
	Text         string
	CustomerID   string
	CustomerName string
}

// Reference returns the customer's own order references, in text order. The
// result has one slot per reference the model returned; null or blank ones are nil.
func (e *Extractors) Reference(ctx context.Context, entry entity.Entry, customer CustomerResult) ([]*string, error) {
	var reply referenceReply
	data := customerData{Text: OrderText(entry), CustomerID: customer.ID, CustomerName: customer.Name}
	if err := e.call(ctx, "reference", data, referenceSchema, &reply); err != nil {
		return nil, err
	}
	out := make([]*string, len(reply.ReferenceNos))
	for i, r := range reply.ReferenceNos {
		if v := strings.TrimSpace(deref(r)); v != "" {
			out[i] = &v
		}
	}
	return out, nil
}
