package entity

import "fmt"

// FailureKind classifies why a field or order could not be extracted.
type FailureKind string

const (
	FailureNoMatchFound       FailureKind = "no_match_found"
	FailureInvalidFieldFormat FailureKind = "invalid_field_format"
	FailureExternalCall       FailureKind = "external_call_failure"
	FailureBatchLevel         FailureKind = "batch_level_failure"
	FailureException          FailureKind = "exception"
)

// FailureContext explains a failure with enough detail for a human reviewer.
type FailureContext struct {
	Kind         FailureKind `json:"kind"`
	Field        string      `json:"field,omitempty"`
	Subagent     string      `json:"subagent,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	RawInput     string      `json:"raw_input,omitempty"`
	BestScore    *float64    `json:"best_score,omitempty"`
	ClosestMatch string      `json:"closest_match,omitempty"`
	Threshold    float64     `json:"threshold,omitempty"`
	Message      string      `json:"message"`
	OrderNo      int         `json:"order_no,omitempty"`
	LineNo       int         `json:"line_no,omitempty"`
	EntryID      string      `json:"entry_id,omitempty"`
	Candidates   []string    `json:"candidates,omitempty"`
	EmailLookup  string      `json:"email_lookup,omitempty"`
}

func (f FailureContext) String() string {
	if f.Field != "" {
		return fmt.Sprintf("%s[%s]: %s", f.Kind, f.Field, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}
