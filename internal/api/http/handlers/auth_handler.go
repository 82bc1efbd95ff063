package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roadside-assist/internal/api/dto"
	"github.com/spec-kit/roadside-assist/internal/service"
	apperrors "github.com/spec-kit/roadside-assist/pkg/util"
)

// AuthHandler exposes login endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// CustomerLogin POST /auth/login.
func (h *AuthHandler) CustomerLogin(c *fiber.Ctx) error {
	var req dto.CustomerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.LoginCustomer(c.Context(), req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

// AgentLogin POST /auth/agent/login.
func (h *AuthHandler) AgentLogin(c *fiber.Ctx) error {
	var req dto.AgentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.LoginAgent(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loginResponse(result)})
}

func loginResponse(result *service.LoginResult) dto.LoginResponse {
	return dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Subject:   string(result.Subject),
		SubjectID: result.SubjectID,
		Name:      result.Name,
	}
}
