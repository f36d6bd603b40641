package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

const trackSuffixLen = 8

// RequestService handles intake, assignment and request reads.
type RequestService struct {
	store    repository.Store
	notifier *NotificationService
	clock    clock.Clock
	logger   *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	Store    repository.Store
	Notifier *NotificationService
	Clock    clock.Clock
	Logger   *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{store: deps.Store, notifier: deps.Notifier, clock: deps.Clock, logger: logger}
}

// CreateRequestInput is a client submission from the public portal.
type CreateRequestInput struct {
	ClientName  string
	ClientPhone string
	ClientEmail string
	TopicCode   string
	Description string
	ExtraFields map[string]string
}

// FinancialsInput carries the staff-editable money fields. Nil leaves a
// field untouched.
type FinancialsInput struct {
	EffectiveRate *domain.Money
	RequestCost   *domain.Money
}

// CreatePublic registers a new request in NEW with its creation history row.
// A track number collision regenerates the number once.
func (s *RequestService) CreatePublic(ctx context.Context, in CreateRequestInput) (*domain.Request, error) {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.ClientPhone = strings.TrimSpace(in.ClientPhone)
	in.TopicCode = strings.TrimSpace(in.TopicCode)
	if in.ClientName == "" || in.ClientPhone == "" || in.TopicCode == "" {
		return nil, apperrors.NewValidationError("client_name, client_phone and topic_code are required", nil)
	}

	var (
		req *domain.Request
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		req, err = s.create(ctx, in)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		s.logger.Warn("track number collision, regenerating")
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.NewConflict("could not allocate a track number", nil)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("request created", zap.String("request_id", req.ID), zap.String("track_number", req.TrackNumber))
	return req, nil
}

func (s *RequestService) create(ctx context.Context, in CreateRequestInput) (*domain.Request, error) {
	now := s.clock.Now()
	req := &domain.Request{
		TrackNumber: "TRK-" + randomSuffix(trackSuffixLen),
		ClientName:  in.ClientName,
		ClientPhone: in.ClientPhone,
		ClientEmail: strings.TrimSpace(in.ClientEmail),
		TopicCode:   in.TopicCode,
		StatusCode:  domain.StatusCodeNew,
		Description: strings.TrimSpace(in.Description),
		ExtraFields: in.ExtraFields,
		Responsible: "client",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Statuses.Get(ctx, domain.StatusCodeNew); err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("status dictionary has no NEW status", nil)
			}
			return err
		}
		if err := repos.Requests.Create(ctx, req); err != nil {
			return err
		}
		return repos.History.Append(ctx, &domain.StatusHistory{
			RequestID:     req.ID,
			ToStatus:      domain.StatusCodeNew,
			ChangedByRole: domain.RoleClient,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Get returns a request visible to actor.
func (s *RequestService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Request, error) {
	req, err := s.store.Repos().Requests.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetByTrack returns the client's own request.
func (s *RequestService) GetByTrack(ctx context.Context, actor domain.Actor) (*domain.Request, error) {
	if actor.Role != domain.RoleClient || actor.TrackNumber == "" {
		return nil, apperrors.NewForbidden("client token required")
	}
	req, err := s.store.Repos().Requests.GetByTrackNumber(ctx, actor.TrackNumber)
	if err != nil {
		return nil, notFound(err, "request")
	}
	return req, nil
}

// Claim assigns an unassigned request to the calling lawyer.
func (s *RequestService) Claim(ctx context.Context, actor domain.Actor, id string) (*domain.Request, error) {
	if actor.Role != domain.RoleLawyer {
		return nil, apperrors.NewForbidden("only lawyers can claim requests")
	}
	return s.assign(ctx, actor, id, actor.ID, true)
}

// Assign sets the responsible lawyer. Admin only.
func (s *RequestService) Assign(ctx context.Context, actor domain.Actor, id, lawyerID string) (*domain.Request, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators can assign requests")
	}
	if strings.TrimSpace(lawyerID) == "" {
		return nil, apperrors.NewValidationError("lawyer_id is required", map[string]any{"field": "lawyer_id"})
	}
	return s.assign(ctx, actor, id, lawyerID, false)
}

func (s *RequestService) assign(ctx context.Context, actor domain.Actor, id, lawyerID string, claim bool) (*domain.Request, error) {
	outbox := s.notifier.NewOutbox()
	var req *domain.Request
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		req, err = repos.Requests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "request")
		}
		if claim && req.AssignedLawyerID != nil && *req.AssignedLawyerID != "" {
			if *req.AssignedLawyerID == lawyerID {
				return nil
			}
			return apperrors.NewConflict("request is already assigned", map[string]any{"assigned_lawyer_id": *req.AssignedLawyerID})
		}

		lawyer, err := repos.AdminUsers.GetByID(ctx, lawyerID)
		if err != nil {
			return notFound(err, "lawyer")
		}
		if !lawyer.Active || lawyer.Role != domain.RoleLawyer {
			return apperrors.NewValidationError("assignee must be an active lawyer", map[string]any{"lawyer_id": lawyerID})
		}

		req.AssignedLawyerID = strPtr(lawyer.ID)
		req.Responsible = responsibleLabel(actor)
		req.UpdatedAt = s.clock.Now()
		if err := repos.Requests.Update(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		title := fmt.Sprintf("Назначен юрист: %s", lawyer.Name)
		if _, err := s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:  domain.EventAssignment,
			Actor: actor,
			Title: title,
		}); err != nil {
			return err
		}
		if claim {
			return nil
		}
		_, err = s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:       domain.EventAssignment,
			Actor:      actor,
			Title:      fmt.Sprintf("Вам назначена заявка %s", req.TrackNumber),
			Recipients: []Recipient{{AdminUserID: lawyer.ID}},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(ctx)
	return req, nil
}

// UpdateFinancials edits the rate and cost used by billing.
func (s *RequestService) UpdateFinancials(ctx context.Context, actor domain.Actor, id string, in FinancialsInput) (*domain.Request, error) {
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff only")
	}
	for field, v := range map[string]*domain.Money{"effective_rate": in.EffectiveRate, "request_cost": in.RequestCost} {
		if v != nil && *v < 0 {
			return nil, apperrors.NewValidationError(field+" must not be negative", map[string]any{"field": field})
		}
	}

	var req *domain.Request
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		var err error
		req, err = repos.Requests.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "request")
		}
		if err := authorizeRequest(actor, req); err != nil {
			return err
		}
		if in.EffectiveRate != nil {
			req.EffectiveRate = moneyPtr(*in.EffectiveRate)
		}
		if in.RequestCost != nil {
			req.RequestCost = moneyPtr(*in.RequestCost)
		}
		req.Responsible = responsibleLabel(actor)
		req.UpdatedAt = s.clock.Now()
		return repos.Requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func responsibleLabel(actor domain.Actor) string {
	if actor.Email != "" {
		return actor.Email
	}
	return strings.ToLower(string(actor.Role))
}
