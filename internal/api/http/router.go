package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Attachments    *handlers.AttachmentsHandler
	Insights       *handlers.InsightsHandler
	Admin          *handlers.AdminHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/bulk", auth.RequireStaff(), cfg.Tickets.BulkUpdate)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/activities", cfg.Tickets.ListActivities)
	tickets.Post("/:id/attachments", cfg.Attachments.Upload)
	tickets.Get("/:id/attachments", cfg.Attachments.List)

	attachments := app.Group("/attachments", cfg.AuthMiddleware.Handle)
	attachments.Get("/:id/content", cfg.Attachments.Download)
	attachments.Delete("/:id", cfg.Attachments.Delete)

	insights := app.Group("/insights", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	insights.Get("/sla", cfg.Insights.SLASummary)
	insights.Get("/analytics", cfg.Insights.Analytics)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/announcements", cfg.Admin.Announce)
	admin.Get("/presence/:userID", cfg.Admin.Presence)
	admin.Get("/metrics", cfg.Admin.Metrics)

	// websocket auth happens in Upgrade; the bearer token rides the query
	app.Get("/ws", cfg.Realtime.Upgrade, cfg.Realtime.Handle())
}
