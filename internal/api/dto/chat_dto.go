package dto

import "github.com/spec-kit/roadside-assist/internal/domain"

// LocationPayload is an optional structured location attached to a message.
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

// ChatMessageRequest payload.
type ChatMessageRequest struct {
	Message  string           `json:"message"`
	Location *LocationPayload `json:"location"`
}

// ChatMessageResponse is the composed outcome of one turn.
type ChatMessageResponse struct {
	SessionID        string         `json:"session_id"`
	Message          string         `json:"message"`
	State            domain.Stage   `json:"state"`
	Options          []string       `json:"options,omitempty"`
	ShouldEscalate   bool           `json:"should_escalate"`
	TicketID         *string        `json:"ticket_id,omitempty"`
	EscalationReason *string        `json:"escalation_reason,omitempty"`
	ServiceType      string         `json:"service_type,omitempty"`
	Priority         string         `json:"priority,omitempty"`
	Facts            map[string]any `json:"facts"`
}

// EscalateRequest payload for the explicit hand-off endpoint. Reason and
// priority default to AGENT_REQUEST/high; collected_context carries any facts
// the caller gathered out of band.
type EscalateRequest struct {
	Reason   string         `json:"reason"`
	Priority string         `json:"priority"`
	Context  map[string]any `json:"collected_context"`
}

// TranscriptMessage is one transcript entry.
type TranscriptMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// TranscriptResponse returns a session with its message history.
type TranscriptResponse struct {
	SessionID string              `json:"session_id"`
	Status    string              `json:"status"`
	Stage     domain.Stage        `json:"stage"`
	Facts     map[string]any      `json:"facts"`
	Messages  []TranscriptMessage `json:"messages"`
}
