package entity

// EntityType names the kind of reference data an entity belongs to.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityAddress  EntityType = "address"
	EntityFamily   EntityType = "family"
	EntityColor    EntityType = "color"
)

// ReferenceEntity is one row of canonical reference data.
type ReferenceEntity struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// MatchCandidate is a reference entity with the score a candidate string got against it.
type MatchCandidate struct {
	Entity ReferenceEntity `json:"entity"`
	Score  float64         `json:"score"`
}

// Unmatched reasons.
const (
	ReasonBelowThreshold    = "below_threshold"
	ReasonEmptyCandidate    = "empty_candidate"
	ReasonEmptyReferenceSet = "empty_reference_set"
)

// ResolutionResult is the outcome of resolving a free-text candidate.
// When Matched is false, Closest holds the best scoring entity (if any) and Reason says why.
type ResolutionResult struct {
	Matched     bool           `json:"matched"`
	EntityID    string         `json:"entity_id,omitempty"`
	EntityName  string         `json:"entity_name,omitempty"`
	Score       float64        `json:"score"`
	Reason      string         `json:"reason,omitempty"`
	Candidate   string         `json:"candidate"`
	Closest     MatchCandidate `json:"closest"`
	Threshold   float64        `json:"threshold"`
	ViaOverride bool           `json:"via_override,omitempty"`
}
