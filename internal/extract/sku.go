package extract

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
	"github.com/joseph-ayodele/orders-intake/internal/matching"
	"github.com/joseph-ayodele/orders-intake/internal/reference"
)

// Reasons recorded on order lines that did not yield a SKU.
const (
	ReasonMissingFields   = "missing_fields"
	ReasonFamilyNoMatch   = "family_match_failed"
	ReasonColorNoMatch    = "color_match_failed"
	ReasonSKUConstruction = "sku_construction_failed"
	ReasonNoOrderLines    = "no_order_lines"
)

var skuSchema = llm.Object(map[string]any{
	"order_lines": llm.ArrayOf(llm.Object(map[string]any{
		"family":   llm.NullableString(),
		"length":   llm.NullableNumber(),
		"width":    llm.NullableNumber(),
		"color":    llm.NullableString(),
		"quantity": llm.NullableNumber(),
	})),
}, "order_lines")

type skuReply struct {
	OrderLines []rawLine `json:"order_lines"`
}

type rawLine struct {
	Family   *string  `json:"family"`
	Length   *float64 `json:"length"`
	Width    *float64 `json:"width"`
	Color    *string  `json:"color"`
	Quantity *float64 `json:"quantity"`
}

func (l rawLine) String() string {
	num := func(f *float64) string {
		if f == nil {
			return "?"
		}
		return fmt.Sprintf("%g", *f)
	}
	return fmt.Sprintf("%s %sx%s %s x%s", deref(l.Family), num(l.Length), num(l.Width), deref(l.Color), num(l.Quantity))
}

// Line is one product line. SKU is empty when the line failed, with Failure set.
type Line struct {
	SKU       string
	Quantity  int
	Family    entity.Family
	ColorCode string
	Failure   *entity.FailureContext
}

type SKUResult struct {
	Lines []Line
	// Failure is set when the text had no product lines at all.
	Failure *entity.FailureContext
}

type catalogData struct {
	Text     string
	Families []entity.Family
	Colors   []entity.Color
}

// SKU extracts product lines and builds a SKU for each from the catalog.
func (e *Extractors) SKU(ctx context.Context, entry entity.Entry, b *reference.Bundle) (SKUResult, error) {
	var reply skuReply
	data := catalogData{Text: OrderText(entry), Families: b.Families, Colors: b.Colors}
	if err := e.call(ctx, "sku", data, skuSchema, &reply); err != nil {
		return SKUResult{}, err
	}
	if len(reply.OrderLines) == 0 {
		return SKUResult{Failure: &entity.FailureContext{
			Kind:     entity.FailureNoMatchFound,
			Field:    "sku",
			Subagent: "sku",
			Reason:   ReasonNoOrderLines,
			Message:  "no product lines found in text",
		}}, nil
	}

	catalog := b.Catalog(e.thresholds.Catalog, e.overrides)
	lines := make([]Line, len(reply.OrderLines))
	for i, raw := range reply.OrderLines {
		lines[i] = buildLine(catalog, raw)
		if lines[i].Failure != nil {
			lines[i].Failure.LineNo = i + 1
			e.logger.Warn("extract.sku.line_failed",
				"entry_id", entry.EntryID,
				"line_no", i+1,
				"reason", lines[i].Failure.Reason,
			)
		}
	}
	return SKUResult{Lines: lines}, nil
}

func buildLine(c *matching.Catalog, raw rawLine) Line {
	fail := func(kind entity.FailureKind, reason, msg string) Line {
		return Line{
			Quantity: positiveInt(raw.Quantity),
			Failure: &entity.FailureContext{
				Kind:     kind,
				Field:    "sku",
				Subagent: "sku",
				Reason:   reason,
				RawInput: raw.String(),
				Message:  msg,
			},
		}
	}

	family, color := strings.TrimSpace(deref(raw.Family)), strings.TrimSpace(deref(raw.Color))
	if family == "" || color == "" || zero(raw.Length) || zero(raw.Width) || zero(raw.Quantity) {
		return fail(entity.FailureInvalidFieldFormat, ReasonMissingFields, "line is missing family, dimensions, color or quantity")
	}

	fam, fres := c.MatchFamily(family)
	if !fres.Matched {
		l := fail(entity.FailureNoMatchFound, ReasonFamilyNoMatch, fmt.Sprintf("family %q not in catalog", family))
		annotate(l.Failure, fres)
		return l
	}
	code, cres := c.MatchColor(color)
	if !cres.Matched {
		l := fail(entity.FailureNoMatchFound, ReasonColorNoMatch, fmt.Sprintf("color %q not in catalog", color))
		annotate(l.Failure, cres)
		l.Family = fam
		return l
	}

	sku, err := matching.BuildSKU(fam.Prefix, round(*raw.Length), round(*raw.Width), code)
	if err != nil {
		l := fail(entity.FailureInvalidFieldFormat, ReasonSKUConstruction, err.Error())
		l.Family, l.ColorCode = fam, code
		return l
	}
	return Line{SKU: sku, Quantity: positiveInt(raw.Quantity), Family: fam, ColorCode: code}
}

func annotate(f *entity.FailureContext, res entity.ResolutionResult) {
	score := res.Score
	f.BestScore = &score
	f.ClosestMatch = res.Closest.Entity.Name
	f.Threshold = res.Threshold
}

func zero(f *float64) bool { return f == nil || *f == 0 }

func round(f float64) int { return int(math.Round(f)) }

func positiveInt(f *float64) int {
	if f == nil || *f <= 0 {
		return 0
	}
	return round(*f)
}
