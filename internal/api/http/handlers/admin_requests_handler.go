package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// AdminRequestsHandler serves request management for ADMIN and LAWYER.
type AdminRequestsHandler struct {
	requests *service.RequestService
	statuses *service.StatusService
	messages *service.MessageService
	notifier *service.NotificationService
	billing  *service.BillingEngine
}

// NewAdminRequestsHandler constructs handler.
func NewAdminRequestsHandler(requests *service.RequestService, statuses *service.StatusService, messages *service.MessageService, notifier *service.NotificationService, billing *service.BillingEngine) *AdminRequestsHandler {
	return &AdminRequestsHandler{requests: requests, statuses: statuses, messages: messages, notifier: notifier, billing: billing}
}

// Get GET /admin/requests/:id.
func (h *AdminRequestsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := h.requests.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// Claim POST /admin/requests/:id/claim.
func (h *AdminRequestsHandler) Claim(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := h.requests.Claim(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// Assign POST /admin/requests/:id/assign.
func (h *AdminRequestsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.AssignRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	req, err := h.requests.Assign(c.UserContext(), actor, c.Params("id"), body.LawyerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// UpdateFinancials PATCH /admin/requests/:id/financials.
func (h *AdminRequestsHandler) UpdateFinancials(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.FinancialsRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	req, err := h.requests.UpdateFinancials(c.UserContext(), actor, c.Params("id"), service.FinancialsInput{
		EffectiveRate: body.EffectiveRate,
		RequestCost:   body.RequestCost,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": requestResponse(req)})
}

// ChangeStatus POST /admin/requests/:id/status.
func (h *AdminRequestsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.ChangeStatusRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	result, err := h.statuses.ChangeStatus(c.UserContext(), actor, service.ChangeStatusInput{
		RequestID: c.Params("id"),
		ToStatus:  body.Status,
		Comment:   body.Comment,
	})
	if err != nil {
		return err
	}

	resp := dto.StatusChangeResponse{
		Request:         requestResponse(result.Request),
		History:         historyResponse(result.History),
		BillingAction:   result.Billing.Action,
		InternalCreated: result.Notify.InternalCreated,
		ExternalQueued:  result.Notify.ExternalQueued,
	}
	if inv := result.Billing.Invoice; inv != nil {
		details, err := h.billing.OpenDetails(inv.PayerDetails)
		if err != nil {
			return err
		}
		out := invoiceResponse(*inv, details)
		resp.Invoice = &out
	}
	return c.JSON(fiber.Map{"data": resp})
}

// History GET /admin/requests/:id/history.
func (h *AdminRequestsHandler) History(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	rows, err := h.statuses.ListHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.HistoryEntryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, historyResponse(row))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Thread GET /admin/requests/:id/thread.
func (h *AdminRequestsHandler) Thread(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	thread, err := h.messages.Thread(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(thread)})
}

// AddMessage POST /admin/requests/:id/messages.
func (h *AdminRequestsHandler) AddMessage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.CreateMessageRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	msg, err := h.messages.AddMessage(c.UserContext(), actor, c.Params("id"), body.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// AddAttachment POST /admin/requests/:id/attachments.
func (h *AdminRequestsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	att, err := addAttachment(c, h.messages, actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(att)})
}

// MarkRead POST /admin/requests/:id/read.
func (h *AdminRequestsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	changed, err := h.notifier.MarkRequestRead(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"notifications_read": changed}})
}

func addAttachment(c *fiber.Ctx, messages *service.MessageService, actor domain.Actor, requestID string) (*domain.Attachment, error) {
	var body dto.CreateAttachmentRequest
	if err := bind(c, &body); err != nil {
		return nil, err
	}
	return messages.AddAttachment(c.UserContext(), actor, requestID, service.AttachmentInput{
		MessageID:  body.MessageID,
		FileName:   body.FileName,
		MimeType:   body.MimeType,
		SizeBytes:  body.SizeBytes,
		StorageKey: body.StorageKey,
	})
}
