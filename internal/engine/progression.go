package engine

import (
	"github.com/spec-kit/roadside-assist/internal/domain"
)

// Next computes the candidate next stage from the current stage and the fact
// mapping. Pure and idempotent: identical inputs always yield the same stage,
// and the result is never earlier in the journey than the input. CONFIRMATION
// and ESCALATED have no forward exit through this function.
func Next(stage domain.Stage, facts domain.Facts) domain.Stage {
	switch domain.NormalizeStage(string(stage)) {
	case domain.StageIdentity:
		if isTrue(facts, domain.FactPhoneVerified) {
			return domain.StageLocation
		}
		return domain.StageIdentity
	case domain.StageLocation:
		if HasLocation(facts) {
			return domain.StageSafety
		}
		return domain.StageLocation
	case domain.StageSafety:
		if isTrue(facts, domain.FactIsSafe) && isTrue(facts, domain.FactIsWithVehicle) {
			return domain.StageIssue
		}
		return domain.StageSafety
	case domain.StageIssue:
		if facts.String(domain.FactIssueCategory) != "" {
			return domain.StageRouting
		}
		return domain.StageIssue
	case domain.StageRouting:
		if facts.String(domain.FactServiceType) != "" {
			return domain.StageConfirmation
		}
		return domain.StageRouting
	case domain.StageConfirmation:
		return domain.StageConfirmation
	case domain.StageEscalated:
		return domain.StageEscalated
	}
	return domain.StageIdentity
}

// HasLocation reports whether any location fact is present: an explicit
// confirmation, coordinates, or a typed address.
func HasLocation(facts domain.Facts) bool {
	if isTrue(facts, domain.FactLocationConfirmed) {
		return true
	}
	if _, ok := facts.Float(domain.FactLatitude); ok {
		return true
	}
	if _, ok := facts.Float(domain.FactLongitude); ok {
		return true
	}
	return facts.String(domain.FactAddress) != ""
}

func isTrue(facts domain.Facts, key string) bool {
	b := facts.Bool(key)
	return b != nil && *b
}
