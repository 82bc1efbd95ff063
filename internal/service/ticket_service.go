package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/events"
	"github.com/spec-kit/roadside-assist/internal/repository"
	"github.com/spec-kit/roadside-assist/pkg/util"
)

// TicketService is the gateway through which sessions become durable
// hand-off records. It owns the one-open-ticket-per-session guarantee.
type TicketService struct {
	tickets    repository.TicketRepository
	sessions   repository.SessionRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	SessionRepo repository.SessionRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the gateway.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		sessions:   deps.SessionRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// TicketDraft describes the ticket to create when the session has no open
// ticket yet.
type TicketDraft struct {
	SessionID    string
	CustomerID   string
	Source       domain.TicketSource
	Reason       string
	Priority     domain.TicketPriority
	CustomerName *string
	Phone        *string
	VehicleModel *string
	Snapshot     map[string]any
}

// validTransitions keys each status to the statuses an agent may move it to.
var validTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusDispatched, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusDispatched, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusDispatched: {domain.TicketStatusOnSite, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusOnSite:     {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

// GetOrCreate returns the session's open ticket if one exists, otherwise
// creates a new OPEN ticket from the draft. The boolean reports whether a
// ticket was created. Two hand-offs on the same session always converge on
// one record.
func (s *TicketService) GetOrCreate(ctx context.Context, draft TicketDraft) (*domain.Ticket, bool, error) {
	existing, err := s.tickets.GetOpenBySession(ctx, draft.SessionID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, util.NewInternalError(err)
	}

	priority := draft.Priority
	if priority == "" {
		priority = domain.TicketPriorityNormal
	}
	ticket := &domain.Ticket{
		ExternalKey:  newTicketKey(),
		SessionID:    draft.SessionID,
		CustomerID:   draft.CustomerID,
		Source:       draft.Source,
		Reason:       draft.Reason,
		Priority:     priority,
		Status:       domain.TicketStatusOpen,
		CustomerName: draft.CustomerName,
		Phone:        draft.Phone,
		VehicleModel: draft.VehicleModel,
		Snapshot:     draft.Snapshot,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		// A concurrent hand-off may have won the partial unique index on
		// open tickets; fall back to the existing record.
		if existing, lookupErr := s.tickets.GetOpenBySession(ctx, draft.SessionID); lookupErr == nil {
			return existing, false, nil
		}
		return nil, false, util.NewInternalError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", ticket.SessionID),
		zap.String("source", string(ticket.Source)),
		zap.String("reason", ticket.Reason),
		zap.String("priority", string(ticket.Priority)),
	)
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketCreated,
		SessionID: ticket.SessionID,
		TicketID:  ticket.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketCreatedPayload{
			CustomerID: ticket.CustomerID,
			Source:     ticket.Source,
			Reason:     ticket.Reason,
			Priority:   ticket.Priority,
		},
	})
	return ticket, true, nil
}

// GetByID loads one ticket.
func (s *TicketService) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, util.NewInternalError(err)
	}
	return ticket, nil
}

// OpenBySession returns the session's open ticket, or nil when none exists.
func (s *TicketService) OpenBySession(ctx context.Context, sessionID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetOpenBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, util.NewInternalError(err)
	}
	return ticket, nil
}

// ListOpen returns the agent work queue.
func (s *TicketService) ListOpen(ctx context.Context, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	tickets, err := s.tickets.ListOpen(ctx, limit, offset)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return tickets, nil
}

// UpdateStatus applies an agent status change. Moving a ticket to a final
// status also resolves its session, which frees the customer to start a new
// conversation.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) (*domain.Ticket, error) {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, util.NewInternalError(err)
	}
	if current.Status == status {
		return current, nil
	}
	if !isValidTransition(current.Status, status) {
		return nil, util.NewValidationError("invalid status transition", map[string]any{
			"from": string(current.Status),
			"to":   string(status),
		})
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, status)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	if status.IsFinal() {
		if err := s.sessions.MarkResolved(ctx, updated.SessionID); err != nil {
			s.logger.Error("resolve session after ticket close failed",
				zap.String("session_id", updated.SessionID), zap.Error(err))
		} else {
			s.publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventSessionResolved,
				SessionID: updated.SessionID,
				TicketID:  updated.ID,
				Timestamp: time.Now().UTC(),
				Payload: events.SessionResolvedPayload{
					CustomerID: updated.CustomerID,
					Trigger:    "ticket_" + strings.ToLower(string(status)),
				},
			})
		}
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketStatusChanged,
		SessionID: updated.SessionID,
		TicketID:  updated.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func isValidTransition(from, to domain.TicketStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func newTicketKey() string {
	return fmt.Sprintf("TCK-%s", strings.ToUpper(uuid.NewString()[:8]))
}
