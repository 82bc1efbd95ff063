package domain

import "strings"

// Stage identifies one step of the fixed customer journey.
type Stage string

const (
	StageIdentity     Stage = "IDENTITY"
	StageLocation     Stage = "LOCATION"
	StageSafety       Stage = "SAFETY"
	StageIssue        Stage = "ISSUE"
	StageRouting      Stage = "ROUTING"
	StageConfirmation Stage = "CONFIRMATION"
	StageEscalated    Stage = "ESCALATED"
)

// stageOrder positions the forward stages; ESCALATED sits outside the order
// and is reachable from anywhere.
var stageOrder = map[Stage]int{
	StageIdentity:     0,
	StageLocation:     1,
	StageSafety:       2,
	StageIssue:        3,
	StageRouting:      4,
	StageConfirmation: 5,
}

// Ordinal returns the position of a forward stage, or -1 for ESCALATED and
// unknown values.
func (s Stage) Ordinal() int {
	if pos, ok := stageOrder[s]; ok {
		return pos
	}
	return -1
}

// NormalizeStage maps an arbitrary stored or AI-supplied label onto the
// closed stage set. Unknown or garbled labels fall back to IDENTITY so a
// damaged session restarts the journey instead of erroring.
func NormalizeStage(raw string) Stage {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case s == "":
		return StageIdentity
	case strings.HasPrefix(s, "ESC"):
		return StageEscalated
	case strings.HasPrefix(s, "IDEN"):
		return StageIdentity
	case strings.HasPrefix(s, "LOC"):
		return StageLocation
	case strings.HasPrefix(s, "SAFE"):
		return StageSafety
	case strings.HasPrefix(s, "ISS"):
		return StageIssue
	case strings.HasPrefix(s, "ROUT"):
		return StageRouting
	case strings.HasPrefix(s, "CONF"):
		return StageConfirmation
	default:
		return StageIdentity
	}
}
