package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/service"
)

// DictionaryHandler serves the status and transition dictionaries.
type DictionaryHandler struct {
	service *service.DictionaryService
}

// NewDictionaryHandler constructs handler.
func NewDictionaryHandler(dictionaryService *service.DictionaryService) *DictionaryHandler {
	return &DictionaryHandler{service: dictionaryService}
}

// ListStatuses GET /admin/dictionary/statuses.
func (h *DictionaryHandler) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.service.ListStatuses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statusPayloads(statuses)})
}

// UpsertStatuses PUT /admin/dictionary/statuses.
func (h *DictionaryHandler) UpsertStatuses(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.UpsertStatusesRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	inputs := make([]service.StatusInput, 0, len(body.Items))
	for _, item := range body.Items {
		inputs = append(inputs, service.StatusInput{
			Code:            item.Code,
			Name:            item.Name,
			Kind:            item.Kind,
			InvoiceTemplate: item.InvoiceTemplate,
			IsTerminal:      item.IsTerminal,
			SortOrder:       item.SortOrder,
		})
	}
	statuses, err := h.service.UpsertStatuses(c.UserContext(), actor, inputs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statusPayloads(statuses)})
}

// ListTransitions GET /admin/dictionary/transitions?topic=.
func (h *DictionaryHandler) ListTransitions(c *fiber.Ctx) error {
	transitions, err := h.service.ListTransitions(c.UserContext(), c.Query("topic"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionPayloads(transitions)})
}

// UpsertTransitions PUT /admin/dictionary/transitions.
func (h *DictionaryHandler) UpsertTransitions(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var body dto.UpsertTransitionsRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	inputs := make([]service.TransitionInput, 0, len(body.Items))
	for _, item := range body.Items {
		inputs = append(inputs, service.TransitionInput{
			TopicCode:         item.TopicCode,
			FromStatus:        item.FromStatus,
			ToStatus:          item.ToStatus,
			Enabled:           item.Enabled,
			SLAHours:          item.SLAHours,
			RequiredDataKeys:  item.RequiredDataKeys,
			RequiredMimeTypes: item.RequiredMimeTypes,
		})
	}
	transitions, err := h.service.UpsertTransitions(c.UserContext(), actor, inputs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": transitionPayloads(transitions)})
}

func statusPayloads(statuses []domain.Status) []dto.StatusPayload {
	out := make([]dto.StatusPayload, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, statusPayload(s))
	}
	return out
}

func transitionPayloads(transitions []domain.TopicStatusTransition) []dto.TransitionPayload {
	out := make([]dto.TransitionPayload, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, transitionPayload(t))
	}
	return out
}
