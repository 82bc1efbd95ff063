package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roadside-assist/internal/api/dto"
	"github.com/spec-kit/roadside-assist/internal/service"
	apperrors "github.com/spec-kit/roadside-assist/pkg/util"
)

// AgentHandler exposes the agent dashboard endpoints.
type AgentHandler struct {
	tickets       *service.TicketService
	conversations *service.ConversationService
}

// NewAgentHandler constructs handler.
func NewAgentHandler(tickets *service.TicketService, conversations *service.ConversationService) *AgentHandler {
	return &AgentHandler{tickets: tickets, conversations: conversations}
}

// ListTickets GET /agent/tickets.
func (h *AgentHandler) ListTickets(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	tickets, err := h.tickets.ListOpen(c.Context(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /agent/tickets/:id.
func (h *AgentHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// UpdateTicketStatus PATCH /agent/tickets/:id/status.
func (h *AgentHandler) UpdateTicketStatus(c *fiber.Ctx) error {
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}

	ticket, err := h.tickets.UpdateStatus(c.Context(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// Transcript GET /agent/sessions/:id/transcript.
func (h *AgentHandler) Transcript(c *fiber.Ctx) error {
	session, messages, err := h.conversations.Transcript(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TranscriptMessage, 0, len(messages))
	for _, msg := range messages {
		items = append(items, dto.TranscriptMessage{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"data": dto.TranscriptResponse{
		SessionID: session.ID,
		Status:    string(session.Status),
		Stage:     session.Stage,
		Facts:     session.Facts,
		Messages:  items,
	}})
}
