package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// PublicHandler serves the client portal.
type PublicHandler struct {
	requests *service.RequestService
	messages *service.MessageService
	notifier *service.NotificationService
	auth     *service.AuthService
}

// NewPublicHandler constructs handler.
func NewPublicHandler(requests *service.RequestService, messages *service.MessageService, notifier *service.NotificationService, authService *service.AuthService) *PublicHandler {
	return &PublicHandler{requests: requests, messages: messages, notifier: notifier, auth: authService}
}

// CreateRequest POST /public/requests.
func (h *PublicHandler) CreateRequest(c *fiber.Ctx) error {
	var req dto.CreateRequestRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.requests.CreatePublic(c.UserContext(), service.CreateRequestInput{
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
		TopicCode:   req.TopicCode,
		Description: req.Description,
		ExtraFields: req.ExtraFields,
	})
	if err != nil {
		return err
	}
	token, exp, err := h.auth.IssueClientToken(created)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ClientCreatedResponse{
		Request:     clientRequestResponse(created),
		AccessToken: token,
		ExpiresAt:   exp,
	}})
}

// Me GET /public/requests/me.
func (h *PublicHandler) Me(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	req, err := h.requests.GetByTrack(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientRequestResponse(req)})
}

// Thread GET /public/requests/me/thread.
func (h *PublicHandler) Thread(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	thread, err := h.messages.Thread(c.UserContext(), actor, "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(thread)})
}

// AddMessage POST /public/requests/me/messages.
func (h *PublicHandler) AddMessage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	msg, err := h.messages.AddMessage(c.UserContext(), actor, "", req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// AddAttachment POST /public/requests/me/attachments.
func (h *PublicHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	att, err := addAttachment(c, h.messages, actor, "")
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(att)})
}

// MarkRead POST /public/requests/me/read.
func (h *PublicHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	changed, err := h.notifier.MarkRequestRead(c.UserContext(), actor, "")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"notifications_read": changed}})
}
