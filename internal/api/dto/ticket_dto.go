package dto

import (
	"time"

	"github.com/spec-kit/roadside-assist/internal/domain"
)

// TicketSummary response for the agent work queue.
type TicketSummary struct {
	ID           string                `json:"id"`
	ExternalKey  string                `json:"external_key"`
	SessionID    string                `json:"session_id"`
	Source       domain.TicketSource   `json:"source"`
	Reason       string                `json:"reason"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	CustomerName *string               `json:"customer_name"`
	Phone        *string               `json:"phone"`
	VehicleModel *string               `json:"vehicle_model"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the snapshot.
type TicketDetailResponse struct {
	TicketSummary
	Snapshot map[string]any `json:"snapshot"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// NewTicketSummary maps a domain ticket onto the summary DTO.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           t.ID,
		ExternalKey:  t.ExternalKey,
		SessionID:    t.SessionID,
		Source:       t.Source,
		Reason:       t.Reason,
		Priority:     t.Priority,
		Status:       t.Status,
		CustomerName: t.CustomerName,
		Phone:        t.Phone,
		VehicleModel: t.VehicleModel,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// NewTicketDetail maps a domain ticket onto the detail DTO.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		Snapshot:      t.Snapshot,
	}
}
