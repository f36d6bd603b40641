package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// InvoicesHandler serves manual invoice management.
type InvoicesHandler struct {
	service *service.InvoiceService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(invoiceService *service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{service: invoiceService}
}

// List GET /admin/requests/:id/invoices.
func (h *InvoicesHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.InvoiceResponse, 0, len(views))
	for i := range views {
		out = append(out, invoiceViewResponse(&views[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /admin/invoices/:id.
func (h *InvoicesHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceViewResponse(view)})
}

// Create POST /admin/requests/:id/invoices.
func (h *InvoicesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.CreateInvoiceRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	view, err := h.service.Create(c.UserContext(), actor, c.Params("id"), service.CreateInvoiceInput{
		Number:           body.Number,
		Amount:           body.Amount,
		Status:           body.Status,
		PayerDisplayName: body.PayerDisplayName,
		PayerDetails:     body.PayerDetails,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": invoiceViewResponse(view)})
}

// Update PATCH /admin/invoices/:id.
func (h *InvoicesHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.UpdateInvoiceRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	view, err := h.service.Update(c.UserContext(), actor, c.Params("id"), service.UpdateInvoiceInput{
		Amount:           body.Amount,
		Status:           body.Status,
		PayerDisplayName: body.PayerDisplayName,
		PayerDetails:     body.PayerDetails,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceViewResponse(view)})
}

// Delete DELETE /admin/invoices/:id.
func (h *InvoicesHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MarkPaid POST /admin/invoices/:id/pay.
func (h *InvoicesHandler) MarkPaid(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.MarkPaid(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceViewResponse(view)})
}
