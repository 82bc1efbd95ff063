package engine

import (
	"strings"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// Decider evaluates the escalation policy for one turn. Keyword vocabularies
// and thresholds are data so the whole policy lives in one place.
type Decider struct {
	AgentRequestTerms   []string
	EmergencyTerms      []string
	ConfidenceThreshold float64
	UnclearLimit        int
}

// NewDecider returns a decider with the production vocabularies and
// thresholds.
func NewDecider(confidenceThreshold float64, unclearLimit int) *Decider {
	return &Decider{
		AgentRequestTerms: []string{
			"talk to agent", "agent", "human", "person", "someone",
			"call me", "real support", "escalate",
		},
		EmergencyTerms: []string{
			"emergency", "accident", "collision", "crash", "hit", "danger",
			"unsafe", "fire", "ambulance", "police", "help", "save", "die",
			"dying", "hurt", "bleeding", "pain", "injured", "hospital",
			"stuck", "trapped", "threat",
		},
		ConfidenceThreshold: confidenceThreshold,
		UnclearLimit:        unclearLimit,
	}
}

// Input carries one turn's signals into the decider.
type Input struct {
	Facts            domain.Facts
	UserText         string
	AlreadyEscalated bool
	UnclearCount     int
	AINextStep       string
	AIEmergencyLevel string
}

// Decision is the outcome of an escalation evaluation.
type Decision struct {
	Escalate bool
	Reason   domain.EscalationReason
	Priority domain.TicketPriority
}

// Decide applies the safety override first, then the composite trigger. The
// safety rule is absolute: is_safe == false escalates as UNSAFE/emergency no
// matter what the AI or any other field says. The composite trigger is
// skipped for sessions that are already escalated.
func (d *Decider) Decide(in Input) Decision {
	if safe := in.Facts.Bool(domain.FactIsSafe); safe != nil && !*safe {
		return Decision{Escalate: true, Reason: domain.ReasonUnsafe, Priority: domain.TicketPriorityEmergency}
	}
	if in.AlreadyEscalated {
		return Decision{}
	}

	requested := containsAnyTerm(in.UserText, d.AgentRequestTerms)
	emergencyText := containsAnyTerm(in.UserText, d.EmergencyTerms)
	accident := IsAccidentCategory(in.Facts.String(domain.FactIssueCategory))
	aiFlagged := strings.EqualFold(strings.TrimSpace(in.AIEmergencyLevel), "HIGH") ||
		strings.HasPrefix(strings.ToUpper(strings.TrimSpace(in.AINextStep)), "ESC")

	if !requested && !emergencyText && !accident && in.UnclearCount <= d.UnclearLimit && !aiFlagged {
		return Decision{}
	}

	decision := Decision{Escalate: true}
	switch {
	case requested:
		decision.Reason = domain.ReasonAgentRequest
	case accident || emergencyText:
		decision.Reason = domain.ReasonEmergency
	default:
		decision.Reason = domain.ReasonUnclear
	}
	if accident || emergencyText {
		decision.Priority = domain.TicketPriorityEmergency
	} else {
		decision.Priority = domain.TicketPriorityHigh
	}
	return decision
}

// RequiredFactKnown reports whether the stage's critical fact has been
// collected. Stages without a single critical fact always report true.
func RequiredFactKnown(stage domain.Stage, facts domain.Facts) bool {
	switch stage {
	case domain.StageLocation:
		return HasLocation(facts)
	case domain.StageSafety:
		return facts.Bool(domain.FactIsSafe) != nil
	case domain.StageIssue:
		return facts.String(domain.FactIssueCategory) != ""
	default:
		return true
	}
}

// NextUnclearCount applies the ambiguity bookkeeping for one turn: the count
// resets the moment the current stage's required fact becomes known, and
// otherwise increments when extraction confidence falls below the threshold
// while the post-progression stage's required fact is still missing. A
// session's first turn never increments.
func (d *Decider) NextUnclearCount(count int, currentStage, nextStage domain.Stage, facts domain.Facts, confidence float64, firstTurn bool) int {
	switch currentStage {
	case domain.StageLocation, domain.StageSafety, domain.StageIssue:
		if RequiredFactKnown(currentStage, facts) {
			count = 0
		}
	}
	if firstTurn {
		return count
	}
	if confidence < d.ConfidenceThreshold && !RequiredFactKnown(nextStage, facts) {
		count++
	}
	return count
}

// IsAccidentCategory reports whether the issue category is an accident or
// collision. Routing already maps these to towing/emergency; this is the
// decider's redundant safety net.
func IsAccidentCategory(category string) bool {
	c := strings.ToLower(category)
	return strings.Contains(c, "accident") || strings.Contains(c, "collision")
}

func containsAnyTerm(text string, terms []string) bool {
	t := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(t, term) {
			return true
		}
	}
	return false
}
