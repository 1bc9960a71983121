package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

// DateLayout is the canonical CPSD format.
const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "2/1/2006", "2-1-2006", "2.1.2006", "2/1/06"}

var cpsdSchema = llm.Object(map[string]any{
	"cpsds":    llm.ArrayOf(llm.NullableString()),
	"entry_id": llm.NullableString(),
}, "cpsds")

type cpsdReply struct {
	CPSDs   []*string `json:"cpsds"`
	EntryID *string   `json:"entry_id"`
}

type CPSDResult struct {
	// Dates keeps one slot per date the model returned, in text order. Null,
	// blank and unreadable dates are nil slots.
	Dates   []*string
	EntryID string
	// Failure lists dates that could not be read.
	Failure *entity.FailureContext
}

type cpsdData struct {
	Text  string
	Today string
}

// CPSD extracts the customer's requested ship dates as ISO dates.
func (e *Extractors) CPSD(ctx context.Context, entry entity.Entry, now time.Time) (CPSDResult, error) {
	var reply cpsdReply
	data := cpsdData{Text: OrderText(entry), Today: now.Format(DateLayout)}
	if err := e.call(ctx, "cpsd", data, cpsdSchema, &reply); err != nil {
		return CPSDResult{}, err
	}

	out := CPSDResult{EntryID: strings.TrimSpace(deref(reply.EntryID))}
	var bad []string
	out.Dates = make([]*string, len(reply.CPSDs))
	for i, d := range reply.CPSDs {
		raw := strings.TrimSpace(deref(d))
		if raw == "" {
			continue
		}
		iso, err := NormalizeDate(raw)
		if err != nil {
			bad = append(bad, raw)
			continue
		}
		out.Dates[i] = &iso
	}
	if len(bad) > 0 {
		out.Failure = &entity.FailureContext{
			Kind:       entity.FailureInvalidFieldFormat,
			Field:      "cpsd",
			Subagent:   "cpsd",
			RawInput:   strings.Join(bad, "; "),
			Candidates: bad,
			Message:    fmt.Sprintf("unreadable date(s): %s", strings.Join(bad, ", ")),
		}
	}
	return out, nil
}

// NormalizeDate parses a date in one of the accepted layouts and returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}
