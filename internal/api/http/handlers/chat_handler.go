package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roadside-assist/internal/api/dto"
	"github.com/spec-kit/roadside-assist/internal/auth"
	"github.com/spec-kit/roadside-assist/internal/domain"
	"github.com/spec-kit/roadside-assist/internal/service"
	apperrors "github.com/spec-kit/roadside-assist/pkg/util"
)

// ChatHandler exposes the customer conversation endpoints.
type ChatHandler struct {
	conversations *service.ConversationService
}

// NewChatHandler constructs handler.
func NewChatHandler(conversations *service.ConversationService) *ChatHandler {
	return &ChatHandler{conversations: conversations}
}

// Message POST /chatbot/message.
func (h *ChatHandler) Message(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" && req.Location == nil {
		return apperrors.NewValidationError("message is required", nil)
	}

	input := service.MessageInput{Text: req.Message}
	if req.Location != nil {
		input.Location = &service.LocationInput{
			Latitude:  req.Location.Latitude,
			Longitude: req.Location.Longitude,
			Address:   req.Location.Address,
		}
	}
	result, err := h.conversations.HandleMessage(c.Context(), customerIdentity(principal.Customer), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatResponse(result)})
}

// Escalate POST /chatbot/escalate.
func (h *ChatHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.EscalateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.EscalateInput{
		Reason:   domain.EscalationReason(strings.ToUpper(strings.TrimSpace(req.Reason))),
		Priority: domain.TicketPriority(strings.ToLower(strings.TrimSpace(req.Priority))),
		Context:  req.Context,
	}
	result, err := h.conversations.Escalate(c.Context(), customerIdentity(principal.Customer), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": chatResponse(result)})
}

func customerIdentity(customer *domain.Customer) service.CustomerIdentity {
	ident := service.CustomerIdentity{
		ID:    customer.ID,
		Name:  customer.Name,
		Phone: customer.Phone,
	}
	if customer.VehicleModel != nil {
		ident.VehicleModel = *customer.VehicleModel
	}
	return ident
}

func chatResponse(result *service.TurnResult) dto.ChatMessageResponse {
	resp := dto.ChatMessageResponse{
		SessionID:      result.SessionID,
		Message:        result.Message,
		State:          result.Stage,
		Options:        result.Options,
		ShouldEscalate: result.ShouldEscalate,
		TicketID:       result.TicketID,
		ServiceType:    result.ServiceType,
		Priority:       result.Priority,
		Facts:          result.Facts,
	}
	if result.EscalationReason != nil {
		reason := string(*result.EscalationReason)
		resp.EscalationReason = &reason
	}
	return resp
}
