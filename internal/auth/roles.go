package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roadside-assist/internal/domain"
	apperrors "github.com/spec-kit/roadside-assist/pkg/util"
)

// RequireCustomer ensures an authenticated customer.
func RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeCustomer || principal.Customer == nil {
			return apperrors.NewForbidden("customer access required")
		}
		return c.Next()
	}
}

// RequireAgent ensures an authenticated support agent.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAgent || principal.Agent == nil {
			return apperrors.NewForbidden("agent access required")
		}
		return c.Next()
	}
}
