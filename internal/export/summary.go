package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
)

// Failure types in the summary.
const (
	TypeCustomer  = "customer"
	TypeSKU       = "sku"
	TypeException = "exception"
	TypeField     = "field"
)

const maxLinesShown = 3

// FailureSummary renders one markdown section per failed order. Failures that
// were copied onto every line of an order are listed once.
func FailureSummary(failed []entity.OrderRecord) string {
	byOrder := map[int][]entity.FailureContext{}
	seen := map[string]struct{}{}
	for _, r := range failed {
		for _, fc := range r.Failures {
			key := fmt.Sprintf("%d|%s|%s|%s", r.OrderNo, fc.Kind, fc.Field, fc.Message)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			byOrder[r.OrderNo] = append(byOrder[r.OrderNo], fc)
		}
		if _, ok := byOrder[r.OrderNo]; !ok {
			byOrder[r.OrderNo] = nil
		}
	}
	if len(byOrder) == 0 {
		return ""
	}
	orderNos := make([]int, 0, len(byOrder))
	for n := range byOrder {
		orderNos = append(orderNos, n)
	}
	sort.Ints(orderNos)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Failed orders: %d\n", len(orderNos))
	for i, n := range orderNos {
		fcs := byOrder[n]
		typ := failureType(fcs)
		fmt.Fprintf(&sb, "\n### Failure %d: Order %d\n", i+1, n)
		fmt.Fprintf(&sb, "**Type:** %s\n", typ)
		switch typ {
		case TypeCustomer:
			writeCustomer(&sb, first(fcs, func(fc entity.FailureContext) bool { return fc.Subagent == "customer" }))
		case TypeSKU:
			writeSKU(&sb, fcs)
		case TypeException:
			fc := first(fcs, func(fc entity.FailureContext) bool { return fc.Kind == entity.FailureException })
			fmt.Fprintf(&sb, "**Exception:** %s\n", fc.Message)
		default:
			for _, fc := range fcs {
				fmt.Fprintf(&sb, "- **%s:** %s\n", or(fc.Field, string(fc.Kind)), fc.Message)
			}
		}
	}
	return sb.String()
}

func failureType(fcs []entity.FailureContext) string {
	has := func(pred func(entity.FailureContext) bool) bool {
		for _, fc := range fcs {
			if pred(fc) {
				return true
			}
		}
		return false
	}
	switch {
	case has(func(fc entity.FailureContext) bool { return fc.Subagent == "customer" }):
		return TypeCustomer
	case has(func(fc entity.FailureContext) bool { return fc.Subagent == "sku" }):
		return TypeSKU
	case has(func(fc entity.FailureContext) bool { return fc.Kind == entity.FailureException }):
		return TypeException
	default:
		return TypeField
	}
}

func writeCustomer(sb *strings.Builder, fc entity.FailureContext) {
	fmt.Fprintf(sb, "**Extracted Names:** %s\n", strings.Join(fc.Candidates, ", "))
	if fc.BestScore != nil {
		fmt.Fprintf(sb, "**Best Match Score:** %.2f%%\n", *fc.BestScore*100)
	}
	fmt.Fprintf(sb, "**Threshold Required:** %.0f%%\n", fc.Threshold*100)
	fmt.Fprintf(sb, "**Closest Match:** %s\n", or(fc.ClosestMatch, "None"))
	if fc.EmailLookup != "" {
		fmt.Fprintf(sb, "**Sender Email:** %s\n", fc.EmailLookup)
	}
	if fc.Reason != "" {
		fmt.Fprintf(sb, "**Reason:** %s\n", fc.Reason)
	}
}

func writeSKU(sb *strings.Builder, fcs []entity.FailureContext) {
	var lines []entity.FailureContext
	for _, fc := range fcs {
		if fc.Subagent == "sku" {
			lines = append(lines, fc)
		}
	}
	fmt.Fprintf(sb, "**Reason:** %s\n", lines[0].Reason)
	for i, fc := range lines {
		if i == maxLinesShown {
			fmt.Fprintf(sb, "- %d more\n", len(lines)-maxLinesShown)
			break
		}
		fmt.Fprintf(sb, "- **Line %d:** %s: %s\n", fc.LineNo, fc.Reason, fc.Message)
	}
}

func first(fcs []entity.FailureContext, pred func(entity.FailureContext) bool) entity.FailureContext {
	for _, fc := range fcs {
		if pred(fc) {
			return fc
		}
	}
	return entity.FailureContext{}
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
