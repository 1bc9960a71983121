// Package matching resolves free-text names extracted from orders against
// reference data: customers, delivery addresses and catalog entries.
package matching

import (
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/similarity"
	"github.com/joseph-ayodele/orders-intake/internal/textnorm"
)

// Resolver maps a candidate string to the best reference entity.
// Overrides is keyed by normalized alias and holds entity ids.
type Resolver struct {
	Threshold float64
	Overrides map[string]string
	Scorer    similarity.Scorer
}

// Resolve is a convenience wrapper around Resolver with the token-set scorer.
func Resolve(candidate string, refs []entity.ReferenceEntity, threshold float64, overrides map[string]string) entity.ResolutionResult {
	return Resolver{Threshold: threshold, Overrides: overrides}.Resolve(candidate, refs)
}

// Resolve scores candidate against every reference. The first reference with
// the highest score wins; a score at or above Threshold is a match.
func (r Resolver) Resolve(candidate string, refs []entity.ReferenceEntity) entity.ResolutionResult {
	res := entity.ResolutionResult{Candidate: candidate, Threshold: r.Threshold}
	if textnorm.Collapse(candidate) == "" {
		res.Reason = entity.ReasonEmptyCandidate
		return res
	}
	if len(refs) == 0 {
		res.Reason = entity.ReasonEmptyReferenceSet
		return res
	}

	if id, ok := Lookup(r.Overrides, candidate); ok {
		res.Matched = true
		res.ViaOverride = true
		res.EntityID = id
		res.Score = 1
		for _, ref := range refs {
			if ref.ID == id {
				res.EntityName = ref.Name
				break
			}
		}
		res.Closest = entity.MatchCandidate{
			Entity: entity.ReferenceEntity{ID: id, Name: res.EntityName},
			Score:  1,
		}
		return res
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = similarity.TokenSet
	}
	best := entity.MatchCandidate{Score: -1}
	for _, ref := range refs {
		if s := scorer(candidate, ref.Name); s > best.Score {
			best = entity.MatchCandidate{Entity: ref, Score: s}
		}
	}

	res.Closest = best
	res.Score = best.Score
	if best.Score >= r.Threshold {
		res.Matched = true
		res.EntityID = best.Entity.ID
		res.EntityName = best.Entity.Name
		return res
	}
	res.Reason = entity.ReasonBelowThreshold
	return res
}

// ResolveAny resolves several spellings of the same name and keeps the best
// outcome. An override hit on any candidate wins; otherwise the highest score
// wins and the earlier candidate wins ties.
func (r Resolver) ResolveAny(candidates []string, refs []entity.ReferenceEntity) entity.ResolutionResult {
	var (
		best    entity.ResolutionResult
		haveAny bool
	)
	for _, c := range candidates {
		res := r.Resolve(c, refs)
		if res.Reason == entity.ReasonEmptyCandidate {
			continue
		}
		if res.ViaOverride {
			return res
		}
		if !haveAny || res.Score > best.Score {
			best, haveAny = res, true
		}
	}
	if !haveAny {
		return entity.ResolutionResult{Threshold: r.Threshold, Reason: entity.ReasonEmptyCandidate}
	}
	return best
}
