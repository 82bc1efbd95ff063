package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusDispatched TicketStatus = "DISPATCHED"
	TicketStatusOnSite     TicketStatus = "ON_SITE"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsFinal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsFinal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketSource distinguishes human hand-offs from booked service requests.
type TicketSource string

const (
	TicketSourceEscalation TicketSource = "ESCALATION"
	TicketSourceService    TicketSource = "SERVICE"
)

// TicketPriority enumerates dispatch urgency.
type TicketPriority string

const (
	TicketPriorityNormal    TicketPriority = "normal"
	TicketPriorityHigh      TicketPriority = "high"
	TicketPriorityEmergency TicketPriority = "emergency"
)

// EscalationReason explains why a conversation was handed to an agent.
type EscalationReason string

const (
	ReasonUnsafe       EscalationReason = "UNSAFE"
	ReasonAgentRequest EscalationReason = "AGENT_REQUEST"
	ReasonEmergency    EscalationReason = "EMERGENCY"
	ReasonUnclear      EscalationReason = "UNCLEAR"
	ReasonService      EscalationReason = "SERVICE_REQUEST"
)

// Ticket is the durable hand-off record. At most one ticket whose status is
// not final may exist per session.
type Ticket struct {
	ID           string
	ExternalKey  string
	SessionID    string
	CustomerID   string
	Source       TicketSource
	Reason       string
	Priority     TicketPriority
	Status       TicketStatus
	CustomerName *string
	Phone        *string
	VehicleModel *string
	Snapshot     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
