package engine

import (
	"testing"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

func newTestDecider() *Decider {
	return NewDecider(0.55, 2)
}

func TestDecideSafetyOverrideBeatsEverything(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:            domain.Facts{domain.FactIsSafe: false},
		UserText:         "all good",
		AIEmergencyLevel: "LOW",
		AINextStep:       "LOCATION",
	})
	if !decision.Escalate {
		t.Fatal("is_safe=false must escalate")
	}
	if decision.Reason != domain.ReasonUnsafe {
		t.Fatalf("reason = %s, want UNSAFE", decision.Reason)
	}
	if decision.Priority != domain.TicketPriorityEmergency {
		t.Fatalf("priority = %s, want emergency", decision.Priority)
	}
}

func TestDecideSafetyOverrideAppliesWhenAlreadyEscalated(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:            domain.Facts{domain.FactIsSafe: false},
		AlreadyEscalated: true,
	})
	if !decision.Escalate || decision.Reason != domain.ReasonUnsafe {
		t.Fatal("safety override must fire even on an escalated session")
	}
}

func TestDecideAgentRequest(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:    domain.Facts{},
		UserText: "I want to talk to a human please",
	})
	if !decision.Escalate || decision.Reason != domain.ReasonAgentRequest {
		t.Fatalf("decision = %+v, want AGENT_REQUEST", decision)
	}
	if decision.Priority != domain.TicketPriorityHigh {
		t.Fatalf("priority = %s, want high", decision.Priority)
	}
}

func TestDecideEmergencyTextGetsEmergencyPriority(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:    domain.Facts{},
		UserText: "there was a crash on the highway",
	})
	if !decision.Escalate || decision.Reason != domain.ReasonEmergency {
		t.Fatalf("decision = %+v, want EMERGENCY", decision)
	}
	if decision.Priority != domain.TicketPriorityEmergency {
		t.Fatalf("priority = %s, want emergency", decision.Priority)
	}
}

func TestDecideAgentRequestOutranksEmergencyForReason(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:    domain.Facts{},
		UserText: "accident, get me an agent",
	})
	if decision.Reason != domain.ReasonAgentRequest {
		t.Fatalf("reason = %s, want AGENT_REQUEST", decision.Reason)
	}
	if decision.Priority != domain.TicketPriorityEmergency {
		t.Fatalf("priority = %s, want emergency when emergency terms present", decision.Priority)
	}
}

func TestDecideAccidentCategoryEscalates(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:    domain.Facts{domain.FactIssueCategory: "accident / collision"},
		UserText: "yes that one",
	})
	if !decision.Escalate || decision.Reason != domain.ReasonEmergency {
		t.Fatalf("decision = %+v, want EMERGENCY from accident category", decision)
	}
}

func TestDecideUnclearOverLimit(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:        domain.Facts{},
		UserText:     "hmm",
		UnclearCount: 3,
	})
	if !decision.Escalate || decision.Reason != domain.ReasonUnclear {
		t.Fatalf("decision = %+v, want UNCLEAR", decision)
	}
	if decision.Priority != domain.TicketPriorityHigh {
		t.Fatalf("priority = %s, want high", decision.Priority)
	}
	decision = d.Decide(Input{Facts: domain.Facts{}, UserText: "hmm", UnclearCount: 2})
	if decision.Escalate {
		t.Fatal("count at the limit must not escalate")
	}
}

func TestDecideAIFlagsForceEscalation(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{Facts: domain.Facts{}, UserText: "ok", AIEmergencyLevel: "high"})
	if !decision.Escalate || decision.Reason != domain.ReasonUnclear {
		t.Fatalf("decision = %+v, want UNCLEAR on HIGH emergency level", decision)
	}
	decision = d.Decide(Input{Facts: domain.Facts{}, UserText: "ok", AINextStep: "ESCALATE_TO_AGENT"})
	if !decision.Escalate {
		t.Fatal("ESC* next step hint must escalate")
	}
}

func TestDecideCompositeSkippedWhenAlreadyEscalated(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:            domain.Facts{},
		UserText:         "talk to agent now please",
		AlreadyEscalated: true,
	})
	if decision.Escalate {
		t.Fatal("composite trigger must not re-escalate an escalated session")
	}
}

func TestDecideQuietTurnDoesNotEscalate(t *testing.T) {
	d := newTestDecider()
	decision := d.Decide(Input{
		Facts:    domain.Facts{domain.FactIsSafe: true},
		UserText: "my number is 9876543210",
	})
	if decision.Escalate {
		t.Fatalf("decision = %+v, want no escalation", decision)
	}
}

func TestNextUnclearCountResetOnKnownFact(t *testing.T) {
	d := newTestDecider()
	facts := domain.Facts{domain.FactAddress: "MG Road"}
	got := d.NextUnclearCount(2, domain.StageLocation, domain.StageSafety, facts, 0.9, false)
	if got != 0 {
		t.Fatalf("count = %d, want 0 after the stage fact became known", got)
	}
}

func TestNextUnclearCountIncrementsOnLowConfidenceGap(t *testing.T) {
	d := newTestDecider()
	facts := domain.Facts{}
	got := d.NextUnclearCount(1, domain.StageLocation, domain.StageLocation, facts, 0.3, false)
	if got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestNextUnclearCountFirstTurnNeverIncrements(t *testing.T) {
	d := newTestDecider()
	got := d.NextUnclearCount(0, domain.StageIdentity, domain.StageIdentity, domain.Facts{}, 0.1, true)
	if got != 0 {
		t.Fatalf("count = %d, want 0 on first turn", got)
	}
}

func TestNextUnclearCountHighConfidenceHolds(t *testing.T) {
	d := newTestDecider()
	got := d.NextUnclearCount(1, domain.StageLocation, domain.StageLocation, domain.Facts{}, 0.8, false)
	if got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}
}

func TestRequiredFactKnown(t *testing.T) {
	if RequiredFactKnown(domain.StageLocation, domain.Facts{}) {
		t.Fatal("LOCATION without location facts should be unknown")
	}
	if !RequiredFactKnown(domain.StageSafety, domain.Facts{domain.FactIsSafe: false}) {
		t.Fatal("an answered safety question counts even when the answer is no")
	}
	if !RequiredFactKnown(domain.StageIdentity, domain.Facts{}) {
		t.Fatal("stages without a critical fact always report true")
	}
}
