package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/roadside-assist/internal/api/http/handlers"
	"github.com/spec-kit/roadside-assist/internal/auth"
	"github.com/spec-kit/roadside-assist/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Chat           *handlers.ChatHandler
	Agent          *handlers.AgentHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": cfg.Metrics.Snapshot()})
	})

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.CustomerLogin)
	authGroup.Post("/agent/login", cfg.Auth.AgentLogin)

	chat := app.Group("/chatbot", cfg.AuthMiddleware.Handle, auth.RequireCustomer())
	chat.Post("/message", cfg.Chat.Message)
	chat.Post("/escalate", cfg.Chat.Escalate)

	agent := app.Group("/agent", cfg.AuthMiddleware.Handle, auth.RequireAgent())
	agent.Get("/tickets", cfg.Agent.ListTickets)
	agent.Get("/tickets/:id", cfg.Agent.GetTicket)
	agent.Patch("/tickets/:id/status", cfg.Agent.UpdateTicketStatus)
	agent.Get("/sessions/:id/transcript", cfg.Agent.Transcript)
}
