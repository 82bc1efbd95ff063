package engine

import (
	"fmt"
	"strings"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// Quick-reply options surfaced next to stage prompts.
var (
	safetyOptions = []string{"Yes, I am safe", "No, I need help"}
	issueOptions  = []string{
		"Engine not starting",
		"Flat tyre",
		"Battery issue",
		"Overheating",
		"Accident / collision",
		"Other (describe)",
	}
	routingOptions = []string{"On-Spot Repair", "Towing Assistance"}
)

// Composer renders the next user-facing prompt. Upstream-generated text is
// passed through when it is topically aligned with the resolved stage and
// replaced with a canned transition message when it has drifted; escalation
// replies are fully templated so they stay deterministic under test.
type Composer struct{}

// ComposeInput carries everything the composer needs for one turn.
type ComposeInput struct {
	PreviousStage domain.Stage
	Stage         domain.Stage
	Facts         domain.Facts
	AIReply       string
	CustomerName  string
	VehicleModel  string
}

// Reply returns the outgoing message for a non-escalated turn.
func (Composer) Reply(in ComposeInput) string {
	msg := strings.TrimSpace(in.AIReply)
	if msg == "" {
		msg = "Thanks. One moment while I help you."
	}
	lower := strings.ToLower(msg)

	switch in.Stage {
	case domain.StageLocation:
		if in.PreviousStage == domain.StageIdentity || in.PreviousStage == domain.StageLocation {
			if !strings.Contains(lower, "location") && !strings.Contains(lower, "address") {
				msg = "Thank you for confirming your mobile number. Now, could you please provide your current location? You can share your GPS coordinates or a typed address."
			}
		}
	case domain.StageSafety:
		if in.PreviousStage == domain.StageLocation || in.PreviousStage == domain.StageSafety {
			safe := in.Facts.Bool(domain.FactIsSafe)
			withVehicle := in.Facts.Bool(domain.FactIsWithVehicle)
			switch {
			case safe == nil || withVehicle == nil:
				msg = "I've recorded your location. To ensure we can help you properly: Are you safe and are you currently with the vehicle?"
			case !*safe:
				msg = "I'm concerned for your safety. Are you in a safe location away from traffic?"
			case !*withVehicle:
				msg = "I'm glad you are safe. However, for us to assist you with the vehicle, we need to know if you are currently with it. Are you at the car's location?"
			}
		}
	case domain.StageIssue:
		if in.PreviousStage == domain.StageSafety && strings.Contains(lower, "safe") {
			msg = "I'm glad to hear you're safe. What issue are you experiencing with your car?"
		}
	case domain.StageIdentity:
		if len(msg) < 10 || !strings.Contains(lower, "number") {
			msg = fmt.Sprintf("Welcome! I see you are logged in as %s. To assist you with your %s, could you please confirm your registered mobile number?", in.CustomerName, in.VehicleModel)
		}
	case domain.StageConfirmation:
		msg = "Thank you! Your service has been booked. Our team will reach you soon."
	}
	return msg
}

// Options returns the quick replies for a stage, or nil.
func (Composer) Options(stage domain.Stage) []string {
	switch stage {
	case domain.StageSafety:
		return safetyOptions
	case domain.StageIssue:
		return issueOptions
	case domain.StageRouting:
		return routingOptions
	default:
		return nil
	}
}

// IdentityPrompt is the fallback greeting used when a placeholder message is
// filtered out before reaching the extraction service.
func (Composer) IdentityPrompt() string {
	return "Welcome! I'm here to help. Could you please confirm your registered mobile number?"
}

// UnsafeNotice is the immediate user-visible line for the safety override.
func (Composer) UnsafeNotice() string {
	return "I'm sorry you're not safe. I'm connecting you to a human agent right now. If you are in immediate danger, please contact local emergency services."
}

// EscalationNotice asks for whatever the agent still needs before hand-off.
func (Composer) EscalationNotice(facts domain.Facts) string {
	needed := missingHandoffDetails(facts)
	if len(needed) == 0 {
		return "Connecting you to a human agent now."
	}
	return fmt.Sprintf("I'm connecting you to an agent, but first, could you please provide your %s so they can help you faster?", strings.Join(needed, " and "))
}

// EscalationGreeting renders the fixed empathetic agent hand-off line,
// phrased from the escalation reason and known facts.
func (Composer) EscalationGreeting(reason domain.EscalationReason, facts domain.Facts) string {
	issue := facts.String(domain.FactIssueCategory)
	var contextPhrase string
	switch {
	case IsAccidentCategory(issue):
		contextPhrase = "there's been an accident"
	case reason == domain.ReasonUnsafe:
		contextPhrase = "you're in an unsafe situation"
	case issue != "":
		contextPhrase = fmt.Sprintf("your vehicle is having a %s issue", strings.ToLower(issue))
	default:
		contextPhrase = "you're facing an emergency"
	}
	return fmt.Sprintf("Hi, thank you for reaching out. My name is Agent Sarah, and I'll be assisting you from here. I understand %s. Don't worry, I'm here to help.", contextPhrase)
}

// EscalatedFollowUp replies to messages arriving on an already-escalated
// session: acknowledge once everything needed has just been collected,
// otherwise keep asking for the gaps.
func (Composer) EscalatedFollowUp(hadAllBefore bool, facts domain.Facts) string {
	needed := missingHandoffDetails(facts)
	switch {
	case !hadAllBefore && len(needed) == 0:
		return "Thank you! I've received your details. Our team is on the way and will reach you very soon."
	case len(needed) > 0:
		return fmt.Sprintf("Agent Sarah is reviewing your case. Could you please provide your %s so she can assist you faster?", strings.Join(needed, " and "))
	default:
		return "Agent Sarah is reviewing your case. Please stay safe; our team is arranging assistance now."
	}
}

// HasHandoffDetails reports whether the agent hand-off essentials (verified
// phone and a usable location) are present.
func HasHandoffDetails(facts domain.Facts) bool {
	return len(missingHandoffDetails(facts)) == 0
}

func missingHandoffDetails(facts domain.Facts) []string {
	var needed []string
	if !isTrue(facts, domain.FactPhoneVerified) {
		needed = append(needed, "mobile number")
	}
	_, hasLat := facts.Float(domain.FactLatitude)
	if !hasLat && facts.String(domain.FactAddress) == "" {
		needed = append(needed, "location")
	}
	return needed
}
