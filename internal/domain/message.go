package domain

import "time"

// MessageRole identifies the author of a transcript entry.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is one append-only transcript entry. The transcript doubles as the
// extraction context window and the permanent audit trail.
type Message struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}
