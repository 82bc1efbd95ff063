package events

import (
	"time"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionEscalated    EventType = "session_escalated"
	EventSessionResolved     EventType = "session_resolved"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionEscalatedPayload payload.
type SessionEscalatedPayload struct {
	CustomerID string                  `json:"customer_id"`
	Reason     domain.EscalationReason `json:"reason"`
	Priority   domain.TicketPriority   `json:"priority"`
	Stage      domain.Stage            `json:"stage"`
}

// SessionResolvedPayload payload.
type SessionResolvedPayload struct {
	CustomerID string `json:"customer_id"`
	Trigger    string `json:"trigger"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	Source     domain.TicketSource   `json:"source"`
	Reason     string                `json:"reason"`
	Priority   domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
