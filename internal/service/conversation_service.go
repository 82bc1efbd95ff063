package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/engine"
	"github.com/spec-kit/roadside-assist/internal/events"
	"github.com/spec-kit/roadside-assist/internal/extraction"
	"github.com/spec-kit/roadside-assist/internal/observability"
	"github.com/spec-kit/roadside-assist/internal/repository"
	"github.com/spec-kit/roadside-assist/pkg/util"
)

// restartKeywords end an escalated session and start a fresh journey.
var restartKeywords = map[string]struct{}{
	"hi": {}, "hello": {}, "start": {}, "restart": {}, "menu": {}, "status": {},
}

// ConversationService orchestrates one conversation turn end to end: load
// state, extract, merge, progress, decide escalation, compose, persist.
// State changes become visible to the caller only after a successful persist.
type ConversationService struct {
	sessions    repository.SessionRepository
	messages    repository.MessageRepository
	tickets     *TicketService
	extractor   extraction.Extractor
	decider     *engine.Decider
	composer    engine.Composer
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	locks       *keyedMutex
	historyWin  int
	phoneRegion string
}

// ConversationDependencies bundles collaborators for the orchestrator.
type ConversationDependencies struct {
	SessionRepo   repository.SessionRepository
	MessageRepo   repository.MessageRepository
	TicketService *TicketService
	Extractor     extraction.Extractor
	Decider       *engine.Decider
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	HistoryWindow int
	PhoneRegion   string
}

// NewConversationService constructs the orchestrator.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	window := deps.HistoryWindow
	if window <= 0 {
		window = 12
	}
	return &ConversationService{
		sessions:    deps.SessionRepo,
		messages:    deps.MessageRepo,
		tickets:     deps.TicketService,
		extractor:   deps.Extractor,
		decider:     deps.Decider,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		locks:       newKeyedMutex(),
		historyWin:  window,
		phoneRegion: deps.PhoneRegion,
	}
}

// CustomerIdentity is the authenticated profile driving a turn. Profile
// values outrank anything extracted from free text.
type CustomerIdentity struct {
	ID           string
	Name         string
	Phone        string
	VehicleModel string
}

// LocationInput is an optional structured location attached to a message.
type LocationInput struct {
	Latitude  *float64
	Longitude *float64
	Address   string
}

// MessageInput is one inbound customer turn.
type MessageInput struct {
	Text     string
	Location *LocationInput
}

// TurnResult is the composed outcome of one turn.
type TurnResult struct {
	SessionID        string
	Message          string
	Stage            domain.Stage
	Options          []string
	ShouldEscalate   bool
	TicketID         *string
	EscalationReason *domain.EscalationReason
	ServiceType      string
	Priority         string
	Facts            domain.Facts
}

// HandleMessage processes one customer message. Turns for the same customer
// are serialized.
func (s *ConversationService) HandleMessage(ctx context.Context, ident CustomerIdentity, input MessageInput) (*TurnResult, error) {
	unlock := s.locks.Lock(ident.ID)
	defer unlock()
	return s.handleTurn(ctx, ident, input, true)
}

func (s *ConversationService) handleTurn(ctx context.Context, ident CustomerIdentity, input MessageInput, allowRestart bool) (*TurnResult, error) {
	session, isNew, err := s.loadOrCreateSession(ctx, ident)
	if err != nil {
		return nil, err
	}

	facts := session.Facts.Clone()
	if facts == nil {
		facts = domain.Facts{}
	}
	engine.ScrubPlaceholders(facts)
	s.seedProfileFacts(facts, ident)
	applyStructuredLocation(facts, input.Location)

	text := strings.TrimSpace(input.Text)
	userMsg := &domain.Message{SessionID: session.ID, Role: domain.MessageRoleUser, Content: text}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, util.NewInternalError(err)
	}

	// A greeting on an escalated session closes it out and starts over.
	if session.Status == domain.SessionStatusEscalated && allowRestart {
		if _, ok := restartKeywords[strings.ToLower(text)]; ok {
			if err := s.sessions.MarkResolved(ctx, session.ID); err != nil {
				return nil, util.NewInternalError(err)
			}
			s.publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventSessionResolved,
				SessionID: session.ID,
				Timestamp: time.Now().UTC(),
				Payload:   events.SessionResolvedPayload{CustomerID: ident.ID, Trigger: "restart_greeting"},
			})
			return s.handleTurn(ctx, ident, input, false)
		}
	}

	// Client scaffolding sometimes submits literal schema placeholders;
	// answer those without burning an extraction call.
	if engine.IsPlaceholderText(text) && input.Location == nil {
		session.Stage = domain.StageIdentity
		session.Status = domain.SessionStatusActive
		session.Facts = facts
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, util.NewInternalError(err)
		}
		msg := s.composer.IdentityPrompt()
		if err := s.saveAssistant(ctx, session.ID, msg); err != nil {
			return nil, err
		}
		return &TurnResult{
			SessionID: session.ID,
			Message:   msg,
			Stage:     session.Stage,
			Facts:     facts,
		}, nil
	}

	history, err := s.messages.ListRecent(ctx, session.ID, s.historyWin)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	result, err := s.extractor.Extract(ctx, history, s.contextNote(ident, session.Stage, facts))
	if err != nil {
		s.logger.Warn("extraction failed, degrading to forced escalation",
			zap.String("session_id", session.ID), zap.Error(err))
		s.metrics.RecordExtractionFailure()
		result = extraction.FailureResult()
	}

	merged := engine.MergeFacts(facts, result.Extracted)
	engine.ScrubPlaceholders(merged)
	s.seedProfileFacts(merged, ident)

	if category := merged.String(domain.FactIssueCategory); category != "" {
		if serviceType, priority, ok := engine.Route(category); ok {
			merged[domain.FactServiceType] = serviceType
			merged[domain.FactPriority] = string(priority)
		}
	}

	currentStage := session.Stage
	nextStage := engine.Next(currentStage, merged)
	alreadyEscalated := session.Status == domain.SessionStatusEscalated

	count := s.decider.NextUnclearCount(
		merged.Int(domain.FactUnclearCount),
		currentStage, nextStage, merged, result.Confidence, isNew,
	)
	merged[domain.FactUnclearCount] = count

	decision := s.decider.Decide(engine.Input{
		Facts:            merged,
		UserText:         text,
		AlreadyEscalated: alreadyEscalated,
		UnclearCount:     count,
		AINextStep:       result.NextStep,
		AIEmergencyLevel: result.EmergencyLevel,
	})
	if decision.Escalate {
		return s.escalateLocked(ctx, session, ident, merged, decision.Reason, decision.Priority)
	}
	if alreadyEscalated {
		return s.escalatedFollowUp(ctx, session, ident, merged)
	}

	msg := s.composer.Reply(engine.ComposeInput{
		PreviousStage: currentStage,
		Stage:         nextStage,
		Facts:         merged,
		AIReply:       result.UserReply,
		CustomerName:  ident.Name,
		VehicleModel:  ident.VehicleModel,
	})

	var ticketID *string
	if nextStage == domain.StageConfirmation {
		ticket, _, err := s.tickets.GetOrCreate(ctx, TicketDraft{
			SessionID:    session.ID,
			CustomerID:   ident.ID,
			Source:       domain.TicketSourceService,
			Reason:       serviceReason(merged),
			Priority:     domain.TicketPriority(merged.String(domain.FactPriority)),
			CustomerName: optional(ident.Name),
			Phone:        optional(ident.Phone),
			VehicleModel: optional(ident.VehicleModel),
			Snapshot:     buildSnapshot(ident, merged),
		})
		if err != nil {
			return nil, err
		}
		ticketID = &ticket.ID
		msg = fmt.Sprintf("%s Your reference is %s.", msg, ticket.ExternalKey)
	}

	session.Stage = nextStage
	session.Status = domain.SessionStatusActive
	session.Facts = merged
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, util.NewInternalError(err)
	}
	if err := s.saveAssistant(ctx, session.ID, msg); err != nil {
		return nil, err
	}
	s.metrics.RecordTurn(string(nextStage))

	return &TurnResult{
		SessionID:   session.ID,
		Message:     msg,
		Stage:       nextStage,
		Options:     s.composer.Options(nextStage),
		TicketID:    ticketID,
		ServiceType: merged.String(domain.FactServiceType),
		Priority:    merged.String(domain.FactPriority),
		Facts:       merged,
	}, nil
}

// EscalateInput is an explicit hand-off request. Zero values fall back to an
// agent-request escalation at high priority.
type EscalateInput struct {
	Reason   domain.EscalationReason
	Priority domain.TicketPriority
	Context  map[string]any
}

// Escalate hands the customer's session to an agent on explicit request,
// bypassing extraction. Caller-collected context merges into the session
// facts under the same monotonic rules as extracted data.
func (s *ConversationService) Escalate(ctx context.Context, ident CustomerIdentity, input EscalateInput) (*TurnResult, error) {
	unlock := s.locks.Lock(ident.ID)
	defer unlock()

	session, _, err := s.loadOrCreateSession(ctx, ident)
	if err != nil {
		return nil, err
	}
	facts := session.Facts.Clone()
	if facts == nil {
		facts = domain.Facts{}
	}
	if len(input.Context) > 0 {
		facts = engine.MergeFacts(facts, input.Context)
		engine.ScrubPlaceholders(facts)
	}
	s.seedProfileFacts(facts, ident)

	reason := input.Reason
	if reason == "" {
		reason = domain.ReasonAgentRequest
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityHigh
	}
	return s.escalateLocked(ctx, session, ident, facts, reason, priority)
}

// Transcript returns a session with its full message history for agent
// review.
func (s *ConversationService) Transcript(ctx context.Context, sessionID string) (*domain.Session, []domain.Message, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, util.NewNotFound("session", map[string]any{"id": sessionID})
		}
		return nil, nil, util.NewInternalError(err)
	}
	messages, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, util.NewInternalError(err)
	}
	return session, messages, nil
}

func (s *ConversationService) escalateLocked(ctx context.Context, session *domain.Session, ident CustomerIdentity, facts domain.Facts, reason domain.EscalationReason, priority domain.TicketPriority) (*TurnResult, error) {
	facts[domain.FactPriority] = string(priority)
	facts[domain.FactEscalationReason] = string(reason)

	ticket, created, err := s.tickets.GetOrCreate(ctx, TicketDraft{
		SessionID:    session.ID,
		CustomerID:   ident.ID,
		Source:       domain.TicketSourceEscalation,
		Reason:       string(reason),
		Priority:     priority,
		CustomerName: optional(ident.Name),
		Phone:        optional(ident.Phone),
		VehicleModel: optional(ident.VehicleModel),
		Snapshot:     buildSnapshot(ident, facts),
	})
	if err != nil {
		return nil, err
	}

	session.Stage = domain.StageEscalated
	session.Status = domain.SessionStatusEscalated
	session.Facts = facts
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, util.NewInternalError(err)
	}

	visible := s.composer.EscalationNotice(facts)
	if reason == domain.ReasonUnsafe {
		visible = s.composer.UnsafeNotice()
	}
	msg := visible + "\n\n" + s.composer.EscalationGreeting(reason, facts)
	if err := s.saveAssistant(ctx, session.ID, msg); err != nil {
		return nil, err
	}

	s.metrics.RecordEscalation(string(reason))
	s.logger.Info("session escalated",
		zap.String("session_id", session.ID),
		zap.String("reason", string(reason)),
		zap.String("priority", string(priority)),
		zap.Bool("ticket_created", created),
	)
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSessionEscalated,
		SessionID: session.ID,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.SessionEscalatedPayload{
			CustomerID: ident.ID,
			Reason:     reason,
			Priority:   priority,
			Stage:      session.Stage,
		},
	})

	reasonCopy := reason
	return &TurnResult{
		SessionID:        session.ID,
		Message:          msg,
		Stage:            domain.StageEscalated,
		ShouldEscalate:   true,
		TicketID:         &ticket.ID,
		EscalationReason: &reasonCopy,
		Priority:         string(priority),
		Facts:            facts,
	}, nil
}

func (s *ConversationService) escalatedFollowUp(ctx context.Context, session *domain.Session, ident CustomerIdentity, merged domain.Facts) (*TurnResult, error) {
	hadAllBefore := engine.HasHandoffDetails(session.Facts)
	msg := s.composer.EscalatedFollowUp(hadAllBefore, merged)

	session.Stage = domain.StageEscalated
	session.Status = domain.SessionStatusEscalated
	session.Facts = merged
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, util.NewInternalError(err)
	}
	if err := s.saveAssistant(ctx, session.ID, msg); err != nil {
		return nil, err
	}

	result := &TurnResult{
		SessionID:      session.ID,
		Message:        msg,
		Stage:          domain.StageEscalated,
		Options:        []string{"Start New Request"},
		ShouldEscalate: true,
		Priority:       merged.String(domain.FactPriority),
		Facts:          merged,
	}
	if ticket, err := s.tickets.OpenBySession(ctx, session.ID); err == nil && ticket != nil {
		result.TicketID = &ticket.ID
	}
	if reason := merged.String(domain.FactEscalationReason); reason != "" {
		r := domain.EscalationReason(reason)
		result.EscalationReason = &r
	}
	return result, nil
}

func (s *ConversationService) loadOrCreateSession(ctx context.Context, ident CustomerIdentity) (*domain.Session, bool, error) {
	session, err := s.sessions.GetActiveByCustomer(ctx, ident.ID)
	if err == nil {
		return session, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, util.NewInternalError(err)
	}

	facts := domain.Facts{domain.FactUnclearCount: 0}
	s.seedProfileFacts(facts, ident)
	session = &domain.Session{
		ID:         uuid.NewString(),
		CustomerID: ident.ID,
		Status:     domain.SessionStatusActive,
		Stage:      domain.StageIdentity,
		Facts:      facts,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, false, util.NewInternalError(err)
	}
	return session, true, nil
}

// publish emits an event without failing the turn; handler errors are logged.
func (s *ConversationService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *ConversationService) saveAssistant(ctx context.Context, sessionID, content string) error {
	msg := &domain.Message{SessionID: sessionID, Role: domain.MessageRoleAssistant, Content: content}
	if err := s.messages.Create(ctx, msg); err != nil {
		return util.NewInternalError(err)
	}
	return nil
}

// seedProfileFacts copies the authenticated profile into the fact mapping so
// agents and the extraction prompt always see the trusted values.
func (s *ConversationService) seedProfileFacts(facts domain.Facts, ident CustomerIdentity) {
	facts[domain.FactUserName] = ident.Name
	facts[domain.FactPhone] = s.displayPhone(ident.Phone)
	if ident.VehicleModel != "" {
		facts[domain.FactVehicleModel] = ident.VehicleModel
	}
}

func (s *ConversationService) displayPhone(raw string) string {
	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}

func (s *ConversationService) contextNote(ident CustomerIdentity, stage domain.Stage, facts domain.Facts) string {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		factsJSON = []byte("{}")
	}
	vehicle := ident.VehicleModel
	if vehicle == "" {
		vehicle = "unknown vehicle"
	}
	return fmt.Sprintf(
		"AUTH_CONTEXT: The user is already logged in. Name: %s. Registered mobile number: %s. Vehicle: %s.\n"+
			"CURRENT_STATE: %s\n"+
			"FACTS_JSON: %s\n"+
			"INSTRUCTION: Verify the latest user message against CURRENT_STATE, update extracted_data with any new facts, and reply to the user.",
		ident.Name, s.displayPhone(ident.Phone), vehicle, stage, factsJSON,
	)
}

func applyStructuredLocation(facts domain.Facts, loc *LocationInput) {
	if loc == nil {
		return
	}
	if engine.IsPlaceholderLocation(loc.Latitude, loc.Longitude, loc.Address) {
		return
	}
	if loc.Latitude != nil {
		facts[domain.FactLatitude] = *loc.Latitude
	}
	if loc.Longitude != nil {
		facts[domain.FactLongitude] = *loc.Longitude
	}
	if addr := strings.TrimSpace(loc.Address); addr != "" && !engine.IsPlaceholderText(addr) {
		facts[domain.FactAddress] = addr
	}
	if facts.Has(domain.FactLatitude) || facts.Has(domain.FactLongitude) || facts.Has(domain.FactAddress) {
		facts[domain.FactLocationConfirmed] = true
	}
}

func serviceReason(facts domain.Facts) string {
	if serviceType := facts.String(domain.FactServiceType); serviceType != "" {
		return serviceType
	}
	return string(domain.ReasonService)
}

// buildSnapshot freezes everything an agent needs at hand-off time.
func buildSnapshot(ident CustomerIdentity, facts domain.Facts) map[string]any {
	location := map[string]any{}
	if lat, ok := facts.Float(domain.FactLatitude); ok {
		location["latitude"] = lat
	}
	if lng, ok := facts.Float(domain.FactLongitude); ok {
		location["longitude"] = lng
	}
	if addr := facts.String(domain.FactAddress); addr != "" {
		location["address"] = addr
	}
	return map[string]any{
		"customer": map[string]any{
			"name":          ident.Name,
			"phone":         ident.Phone,
			"vehicle_model": ident.VehicleModel,
		},
		"safety": map[string]any{
			"is_safe": facts.Bool(domain.FactIsSafe),
		},
		"location": location,
		"issue": map[string]any{
			"category":     facts.String(domain.FactIssueCategory),
			"service_type": facts.String(domain.FactServiceType),
			"priority":     facts.String(domain.FactPriority),
		},
		"facts": map[string]any(facts.Clone()),
	}
}

func optional(v string) *string {
	if v = strings.TrimSpace(v); v == "" {
		return nil
	}
	return &v
}
