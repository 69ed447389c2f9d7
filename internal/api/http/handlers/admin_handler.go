package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AdminHandler serves admin-only operational endpoints. Route-level role
// guards keep non-admins out.
type AdminHandler struct {
	notifications *service.NotificationService
	presence      realtime.PresenceStore
	metrics       *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(notifications *service.NotificationService, presence realtime.PresenceStore, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{notifications: notifications, presence: presence, metrics: metrics}
}

// Announce POST /admin/announcements. Broadcasts to every connection.
func (h *AdminHandler) Announce(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return apperrors.NewValidationError("message required", map[string]any{"field": "message"})
	}

	h.notifications.Announce(message, principal)
	return c.SendStatus(fiber.StatusAccepted)
}

// Presence GET /admin/presence/:userID.
func (h *AdminHandler) Presence(c *fiber.Ctx) error {
	status, err := h.presence.Get(c.UserContext(), c.Params("userID"))
	if err != nil {
		return apperrors.NewDependencyFailure("presence store", err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user_id": c.Params("userID"),
		"status":  status,
	}})
}

// Metrics GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
