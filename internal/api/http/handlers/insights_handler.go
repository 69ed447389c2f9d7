package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// InsightsHandler serves the staff reporting surface.
type InsightsHandler struct {
	service *service.TicketService
}

// NewInsightsHandler constructs handler.
func NewInsightsHandler(ticketService *service.TicketService) *InsightsHandler {
	return &InsightsHandler{service: ticketService}
}

// SLASummary GET /insights/sla.
func (h *InsightsHandler) SLASummary(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.SLASummary(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// Analytics GET /insights/analytics.
func (h *InsightsHandler) Analytics(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	summary, err := h.service.AnalyticsSummary(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}
