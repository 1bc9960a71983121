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

// How a customer id was obtained.
const (
	ViaLLM      = "llm"
	ViaFuzzy    = "fuzzy"
	ViaOverride = "override"
	ViaEmail    = "email_lookup"
)

var customerSchema = llm.Object(map[string]any{
	"customer_names":    llm.ArrayOf(llm.String()),
	"customer_id":       llm.NullableString(),
	"customer_name":     llm.NullableString(),
	"needs_fuzzy_match": llm.Boolean(),
}, "customer_names")

type customerReply struct {
	CustomerNames   []string `json:"customer_names"`
	CustomerID      *string  `json:"customer_id"`
	CustomerName    *string  `json:"customer_name"`
	NeedsFuzzyMatch *bool    `json:"needs_fuzzy_match"`
}

// CustomerResult is the resolved customer, or a failure explaining why none was found.
type CustomerResult struct {
	ID         string
	Name       string
	Via        string
	Names      []string
	Resolution entity.ResolutionResult
	Failure    *entity.FailureContext
}

func (r CustomerResult) Resolved() bool { return r.ID != "" }

type textData struct {
	Text string
}

// Customer identifies the ordering customer. An id stated by the model is only
// trusted when fuzzy matching was not requested and the id exists in the bundle;
// otherwise the extracted names are resolved, then the sender address is looked up.
// The returned error is non-nil only when the model call itself failed.
func (e *Extractors) Customer(ctx context.Context, entry entity.Entry, b *reference.Bundle) (CustomerResult, error) {
	var reply customerReply
	if err := e.call(ctx, "customer", textData{Text: OrderText(entry)}, customerSchema, &reply); err != nil {
		return CustomerResult{}, err
	}

	names := cleanNames(reply.CustomerNames, deref(reply.CustomerName))
	out := CustomerResult{Names: names}

	needsFuzzy := reply.NeedsFuzzyMatch == nil || *reply.NeedsFuzzyMatch
	if id := strings.TrimSpace(deref(reply.CustomerID)); id != "" && !needsFuzzy {
		if c, ok := b.Customer(id); ok {
			out.ID, out.Name, out.Via = c.ID, c.Name, ViaLLM
			out.Resolution = entity.ResolutionResult{
				Matched: true, EntityID: c.ID, EntityName: c.Name, Score: 1, Candidate: id,
			}
			return out, nil
		}
		e.logger.Warn("extract.customer.unknown_id", "entry_id", entry.EntryID, "customer_id", id)
	}

	res := matching.NewCustomerResolver(e.thresholds.Customer, e.overrides).ResolveAny(names, b.Customers)
	out.Resolution = res
	if res.Matched {
		out.ID, out.Name, out.Via = res.EntityID, res.EntityName, ViaFuzzy
		if res.ViaOverride {
			out.Via = ViaOverride
		}
		return out, nil
	}

	email, haveEmail := senderEmail(entry)
	if haveEmail {
		if c, ok := b.CustomerByEmail(email); ok {
			e.logger.Info("extract.customer.email_lookup", "entry_id", entry.EntryID, "email", email, "customer_id", c.ID)
			out.ID, out.Name, out.Via = c.ID, c.Name, ViaEmail
			return out, nil
		}
	}

	out.Failure = customerFailure(names, res, email)
	return out, nil
}

func customerFailure(names []string, res entity.ResolutionResult, email string) *entity.FailureContext {
	f := &entity.FailureContext{
		Kind:        entity.FailureNoMatchFound,
		Field:       "customer_id",
		Subagent:    "customer",
		Reason:      res.Reason,
		RawInput:    strings.Join(names, "; "),
		Threshold:   res.Threshold,
		Candidates:  names,
		EmailLookup: email,
	}
	if len(names) == 0 {
		f.Reason = entity.ReasonEmptyCandidate
		f.Message = "no customer name found in text"
	} else {
		score := res.Score
		f.BestScore = &score
		f.ClosestMatch = res.Closest.Entity.Name
		f.Message = fmt.Sprintf("no customer matched %q: closest %q scored %.2f, threshold %.2f",
			names[0], f.ClosestMatch, score, res.Threshold)
	}
	if email != "" {
		f.Message += fmt.Sprintf("; sender %s not in email lookup", email)
	}
	return f
}

func cleanNames(names []string, extra string) []string {
	seen := make(map[string]struct{}, len(names)+1)
	out := make([]string, 0, len(names)+1)
	for _, n := range append(names, extra) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

func senderEmail(entry entity.Entry) (string, bool) {
	if email, ok := matching.SenderEmail(entry.RawText); ok {
		return email, true
	}
	if entry.From != "" {
		return matching.SenderEmail("De: " + entry.From)
	}
	return "", false
}

// OrderText is the text sent to the extractors: the subject line, when known,
// followed by the body.
func OrderText(entry entity.Entry) string {
	if s := strings.TrimSpace(entry.Subject); s != "" {
		return "Asunto: " + s + "\n\n" + entry.RawText
	}
	return entry.RawText
}
