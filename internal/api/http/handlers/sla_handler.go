package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/service"
)

// SLAHandler exposes the SLA snapshot.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// Snapshot GET /admin/sla/snapshot.
func (h *SLAHandler) Snapshot(c *fiber.Ctx) error {
	snap, err := h.service.Snapshot(c.UserContext(), c.QueryBool("include_overdue", false))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": snap})
}
