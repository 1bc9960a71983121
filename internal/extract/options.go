package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

var optionsSchema = llm.Object(map[string]any{
	"has_options": llm.Boolean(),
	"color":       llm.NullableString(),
	"quantity":    llm.NullableNumber(),
	"size":        llm.NullableString(),
	"type":        llm.NullableString(),
}, "has_options")

type optionsReply struct {
	HasOptions bool     `json:"has_options"`
	Color      *string  `json:"color"`
	Quantity   *float64 `json:"quantity"`
	Size       *string  `json:"size"`
	Type       *string  `json:"type"`
}

// OptionsResult describes an ordered accessory. The option SKU depends on the
// tray family, so it is resolved once the lines are known (see ResolveOption).
type OptionsResult struct {
	HasOptions bool
	Color      string
	Size       string
	Type       string
	Quantity   float64
}

func (e *Extractors) Options(ctx context.Context, entry entity.Entry, b *reference.Bundle) (OptionsResult, error) {
	var reply optionsReply
	data := catalogData{Text: OrderText(entry), Families: b.Families, Colors: b.Colors}
	if err := e.call(ctx, "options", data, optionsSchema, &reply); err != nil {
		return OptionsResult{}, err
	}
	if !reply.HasOptions {
		return OptionsResult{}, nil
	}
	out := OptionsResult{
		HasOptions: true,
		Color:      strings.TrimSpace(deref(reply.Color)),
		Size:       strings.TrimSpace(deref(reply.Size)),
		Type:       strings.TrimSpace(deref(reply.Type)),
		Quantity:   1,
	}
	if reply.Quantity != nil && *reply.Quantity > 0 {
		out.Quantity = *reply.Quantity
	}
	return out, nil
}

// ResolveOption finds the option SKU for family. The color is matched against the
// catalog; an unmatched color still allows the family default.
func ResolveOption(c *matching.Catalog, o OptionsResult, family string) (string, *entity.FailureContext) {
	if !o.HasOptions {
		return "", nil
	}
	var code string
	if o.Color != "" {
		code, _ = c.MatchColor(o.Color)
	}
	if sku, ok := c.OptionSKU(family, code, o.Size, o.Type); ok {
		return sku, nil
	}
	return "", &entity.FailureContext{
		Kind:     entity.FailureNoMatchFound,
		Field:    "option_sku",
		Subagent: "options",
		RawInput: strings.TrimSpace(strings.Join([]string{o.Color, o.Size, o.Type}, " ")),
		Message:  fmt.Sprintf("no option SKU found for family %s", family),
	}
}
