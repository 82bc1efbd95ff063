package domain

import "time"

// SessionStatus enumerates conversation lifecycle states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusEscalated SessionStatus = "ESCALATED"
	SessionStatusResolved  SessionStatus = "RESOLVED"
)

// Session is the aggregate for one customer conversation. At most one
// ACTIVE-or-ESCALATED session exists per customer; resolved sessions are kept
// as the audit trail and never deleted.
type Session struct {
	ID         string
	CustomerID string
	Status     SessionStatus
	Stage      Stage
	Facts      Facts
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
