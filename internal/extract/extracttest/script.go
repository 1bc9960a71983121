// Package extracttest scripts model replies for the field extractors.
package extracttest

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/llm/llmtest"
)

// Prompt markers, one per extractor. Each rendered prompt contains exactly one.
const (
	CustomerKey  = "Task: customer_identification"
	SKUKey       = "Task: order_lines"
	ReferenceKey = "Task: reference_numbers"
	ValveKey     = "Task: valve_detection"
	AddressKey   = "Task: delivery_address"
	CPSDKey      = "Task: requested_dates"
	OptionsKey   = "Task: options"
)

// Quiet replies for the extractors a test does not care about.
const (
	NoReference = `{"reference_nos": []}`
	NoValves    = `{"valves": []}`
	NoAddress   = `{"delivery_address": null, "telephone_number": null, "contact_name": null}`
	NoCPSD      = `{"cpsds": [], "entry_id": null}`
	NoOptions   = `{"has_options": false}`
)

// Replies holds one reply per extractor. Empty fields get the quiet default;
// customer and SKU replies have no default.
type Replies map[string]llmtest.Reply

// Fake builds a fake completer answering every extractor prompt.
func (r Replies) Fake() *llmtest.Fake {
	by := map[string]llmtest.Reply{
		ReferenceKey: {Text: NoReference},
		ValveKey:     {Text: NoValves},
		AddressKey:   {Text: NoAddress},
		CPSDKey:      {Text: NoCPSD},
		OptionsKey:   {Text: NoOptions},
	}
	for k, v := range r {
		by[k] = v
	}
	return &llmtest.Fake{ByPrompt: by}
}

// PerOrder answers each order from its own Replies. Orders are told apart by a
// marker string that appears in exactly one order text.
func PerOrder(orders map[string]Replies) *llmtest.Fake {
	fakes := make(map[string]*llmtest.Fake, len(orders))
	for marker, r := range orders {
		fakes[marker] = r.Fake()
	}
	return &llmtest.Fake{Respond: func(req llm.Request) (llmtest.Reply, bool) {
		for marker, f := range fakes {
			if strings.Contains(req.Prompt, marker) {
				text, err := f.Complete(context.Background(), req)
				return llmtest.Reply{Text: text, Err: err}, true
			}
		}
		return llmtest.Reply{}, false
	}}
}
