package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/events"
	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// StatusService applies status changes: validation, billing, history and
// notifications commit together.
type StatusService struct {
	store      repository.Store
	billing    *BillingEngine
	notifier   *NotificationService
	dispatcher events.Dispatcher
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// StatusDependencies bundles collaborators for the status service.
type StatusDependencies struct {
	Store      repository.Store
	Billing    *BillingEngine
	Notifier   *NotificationService
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewStatusService constructs the service.
func NewStatusService(deps StatusDependencies) *StatusService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		store:      deps.Store,
		billing:    deps.Billing,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// ChangeStatusInput is a requested transition.
type ChangeStatusInput struct {
	RequestID string
	ToStatus  string
	Comment   string
}

// StatusChangeResult is the committed outcome of a transition.
type StatusChangeResult struct {
	Request *domain.Request
	History domain.StatusHistory
	Billing BillingOutcome
	Notify  NotifyResult
}

// ChangeStatus moves a request to a new status. Every check runs before the
// first write and any failure rolls the whole change back.
func (s *StatusService) ChangeStatus(ctx context.Context, actor domain.Actor, in ChangeStatusInput) (*StatusChangeResult, error) {
	toStatus := strings.TrimSpace(in.ToStatus)
	if toStatus == "" {
		return nil, apperrors.NewValidationError("status is required", map[string]any{"field": "status"})
	}
	if actor.Role == domain.RoleClient {
		return nil, apperrors.NewForbidden("clients cannot change request status")
	}

	outbox := s.notifier.NewOutbox()
	var (
		result   StatusChangeResult
		fromCode string
		kind     domain.StatusKind
	)
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, in.RequestID)
		if err != nil {
			return notFound(err, "request")
		}
		if err := authorizeRequest(actor, req); err != nil {
			return err
		}

		target, err := repos.Statuses.Get(ctx, toStatus)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("unknown status", map[string]any{"status": toStatus})
			}
			return err
		}
		kind = target.Kind
		if target.Kind == domain.StatusKindPaid && actor.Role != domain.RoleAdmin {
			return apperrors.NewForbidden("only an administrator can confirm payment")
		}

		fromCode = req.StatusCode
		rule, err := repos.Transitions.Get(ctx, req.TopicCode, fromCode, toStatus)
		if err != nil && !apperrors.IsNotFound(err) {
			return fmt.Errorf("load transition: %w", err)
		}
		evidence, err := s.evidence(ctx, repos, req, rule)
		if err != nil {
			return err
		}
		if err := ValidateTransition(rule, req.TopicCode, fromCode, toStatus, evidence); err != nil {
			return err
		}

		outcome, err := s.billing.Apply(ctx, repos, req, target, actor)
		if err != nil {
			return err
		}
		result.Billing = outcome

		now := s.clock.Now()
		req.StatusCode = toStatus
		req.UpdatedAt = now
		if err := repos.Requests.Update(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		result.History = domain.StatusHistory{
			RequestID:     req.ID,
			FromStatus:    strPtr(fromCode),
			ToStatus:      toStatus,
			Comment:       strings.TrimSpace(in.Comment),
			ChangedByRole: actor.Role,
			ChangedByID:   actorIDPtr(actor),
			CreatedAt:     now,
		}
		if err := repos.History.Append(ctx, &result.History); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		result.Notify, err = s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:  domain.EventStatusChange,
			Actor: actor,
			Title: fmt.Sprintf("Статус заявки изменен: %s", target.Name),
			Body:  statusChangeBody(fromCode, target, outcome),
		})
		if err != nil {
			return err
		}
		result.Request = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	outbox.Flush(ctx)
	s.metrics.RecordTransition(fromCode, toStatus, string(kind))
	if outcome := result.Billing.Action; outcome != BillingNone {
		s.metrics.RecordInvoice(outcome)
	}
	s.publishStatusChanged(ctx, actor, result.Request, fromCode, kind)
	return &result, nil
}

// evidence gathers what rule asks for; attachments are only read when the
// rule gates on mime types.
func (s *StatusService) evidence(ctx context.Context, repos repository.Repositories, req *domain.Request, rule *domain.TopicStatusTransition) (TransitionEvidence, error) {
	ev := TransitionEvidence{DataKeys: req.FilledExtraKeys()}
	if rule == nil || len(rule.RequiredMimeTypes) == 0 {
		return ev, nil
	}
	attachments, err := repos.Attachments.ListByRequest(ctx, req.ID)
	if err != nil {
		return ev, fmt.Errorf("list attachments: %w", err)
	}
	for _, a := range attachments {
		ev.MimeTypes = append(ev.MimeTypes, a.MimeType)
	}
	return ev, nil
}

func (s *StatusService) publishStatusChanged(ctx context.Context, actor domain.Actor, req *domain.Request, from string, kind domain.StatusKind) {
	if s.dispatcher == nil || req == nil {
		return
	}
	event, err := events.NewEvent(events.EventStatusChanged, req.ID, actor, s.clock.Now(), events.StatusChangedPayload{
		TrackNumber: req.TrackNumber,
		TopicCode:   req.TopicCode,
		FromStatus:  from,
		ToStatus:    req.StatusCode,
		Kind:        string(kind),
	})
	if err == nil {
		err = s.dispatcher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.Warn("publish status change failed", zap.String("request_id", req.ID), zap.Error(err))
	}
}

// ListHistory returns the request's status log in order.
func (s *StatusService) ListHistory(ctx context.Context, actor domain.Actor, requestID string) ([]domain.StatusHistory, error) {
	repos := s.store.Repos()
	req, err := repos.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	return repos.History.ListByRequest(ctx, req.ID)
}

func statusChangeBody(from string, target *domain.Status, outcome BillingOutcome) string {
	body := fmt.Sprintf("%s -> %s", from, target.Code)
	if outcome.Invoice == nil {
		return body
	}
	switch outcome.Action {
	case BillingIssued, BillingRefreshed:
		body += fmt.Sprintf("; счет %s на сумму %s %s", outcome.Invoice.Number, outcome.Invoice.Amount, outcome.Invoice.Currency)
	case BillingPaid:
		body += fmt.Sprintf("; счет %s оплачен", outcome.Invoice.Number)
	}
	return body
}
