package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/alerts"
	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/events"
	"github.com/TronoSfera/Law-sub001/internal/observability"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// alertTimeout bounds one external delivery.
const alertTimeout = 15 * time.Second

// NotificationService fans request events out to in-app notifications, unread
// markers and, after commit, external alerts.
type NotificationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	sender     alerts.Sender
	clock      clock.Clock
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Sender     alerts.Sender
	Clock      clock.Clock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		sender:     deps.Sender,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Recipient is exactly one of an admin-portal user or a client track number.
type Recipient struct {
	AdminUserID string
	TrackNumber string
}

func (r Recipient) key() string {
	if r.AdminUserID != "" {
		return r.AdminUserID
	}
	return r.TrackNumber
}

// NotifyEvent describes something that happened on a request.
type NotifyEvent struct {
	Type  domain.NotificationEventType
	Actor domain.Actor
	Title string
	Body  string
	// DedupePrefix makes the notification idempotent: the key is
	// "<prefix>:<recipient>".
	DedupePrefix string
	// Recipients overrides role-based resolution. Used by system events.
	Recipients []Recipient
}

// NotifyResult reports what a fan-out produced.
type NotifyResult struct {
	InternalCreated int `json:"internal_created"`
	ExternalQueued  int `json:"external_queued"`
}

// Outbox collects external alerts during a transaction. Flush it only after
// the transaction committed; drop it otherwise.
type Outbox struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	pending    []events.Event
}

// NewOutbox returns an empty outbox bound to the service's dispatcher.
func (s *NotificationService) NewOutbox() *Outbox {
	return &Outbox{dispatcher: s.dispatcher, logger: s.logger}
}

func (o *Outbox) stage(event events.Event) {
	o.pending = append(o.pending, event)
}

// Len returns the number of staged events.
func (o *Outbox) Len() int {
	return len(o.pending)
}

// Flush publishes staged events. Failures are logged and never returned.
func (o *Outbox) Flush(ctx context.Context) int {
	if o == nil || o.dispatcher == nil {
		return 0
	}
	published := 0
	for _, event := range o.pending {
		if err := o.dispatcher.Publish(ctx, event); err != nil {
			o.logger.Warn("publish event failed",
				zap.String("type", string(event.Type)),
				zap.String("request_id", event.RequestID),
				zap.Error(err),
			)
			continue
		}
		published++
	}
	o.pending = nil
	return published
}

// Notify resolves recipients for ev, writes deduplicated notifications, sets
// unread markers on req and persists it. It must run inside the transaction
// that produced the event. A notification skipped by its dedupe key leaves
// no trace: no marker and no external alert.
func (s *NotificationService) Notify(ctx context.Context, repos repository.Repositories, outbox *Outbox, req *domain.Request, ev NotifyEvent) (NotifyResult, error) {
	var result NotifyResult
	recipients := s.resolveRecipients(req, ev)
	if len(recipients) == 0 {
		return result, nil
	}

	now := s.clock.Now()
	markersChanged := false
	for _, rcpt := range recipients {
		n := &domain.Notification{
			RequestID: strPtr(req.ID),
			EventType: ev.Type,
			Title:     ev.Title,
			Body:      ev.Body,
			CreatedAt: now,
		}
		if rcpt.AdminUserID != "" {
			n.RecipientAdminUserID = strPtr(rcpt.AdminUserID)
		}
		if rcpt.TrackNumber != "" {
			n.RecipientTrackNumber = strPtr(rcpt.TrackNumber)
		}
		if ev.DedupePrefix != "" {
			n.DedupeKey = strPtr(ev.DedupePrefix + ":" + rcpt.key())
		}

		created, err := repos.Notifications.CreateIfAbsent(ctx, n)
		if err != nil {
			if errors.Is(err, domain.ErrRecipientBinding) {
				s.logger.Error("notification recipient binding violated",
					zap.String("request_id", req.ID),
					zap.String("event_type", string(ev.Type)),
				)
				return result, apperrors.NewInternalError(err)
			}
			return result, fmt.Errorf("create notification: %w", err)
		}
		if !created {
			continue
		}
		result.InternalCreated++
		s.metrics.RecordNotification(string(ev.Type))

		eventType := ev.Type
		switch {
		case rcpt.TrackNumber != "":
			req.ClientHasUnreadUpdates = true
			req.ClientUnreadEventType = &eventType
			markersChanged = true
		case req.IsAssignedTo(rcpt.AdminUserID):
			req.LawyerHasUnreadUpdates = true
			req.LawyerUnreadEventType = &eventType
			markersChanged = true
		}
	}

	if markersChanged {
		if err := repos.Requests.Update(ctx, req); err != nil {
			return result, fmt.Errorf("update unread markers: %w", err)
		}
	}

	if result.InternalCreated > 0 && outbox != nil {
		alert, err := events.NewEvent(events.EventExternalAlert, req.ID, ev.Actor, now, events.ExternalAlertPayload{
			TrackNumber: req.TrackNumber,
			EventType:   ev.Type,
			Text:        alertText(req, ev),
		})
		if err != nil {
			return result, err
		}
		outbox.stage(alert)
		result.ExternalQueued++
	}
	return result, nil
}

func (s *NotificationService) resolveRecipients(req *domain.Request, ev NotifyEvent) []Recipient {
	if len(ev.Recipients) > 0 {
		return ev.Recipients
	}
	switch ev.Actor.Role {
	case domain.RoleClient:
		if req.AssignedLawyerID == nil || *req.AssignedLawyerID == "" {
			return nil
		}
		return []Recipient{{AdminUserID: *req.AssignedLawyerID}}
	case domain.RoleAdmin, domain.RoleLawyer:
		return []Recipient{{TrackNumber: req.TrackNumber}}
	default:
		return nil
	}
}

func alertText(req *domain.Request, ev NotifyEvent) string {
	text := fmt.Sprintf("[%s] %s: %s", ev.Type, req.TrackNumber, ev.Title)
	if ev.Body != "" {
		text += "\n" + ev.Body
	}
	return text
}

// MarkRequestRead clears the reading audience's unread marker and marks its
// notifications on the request as read.
func (s *NotificationService) MarkRequestRead(ctx context.Context, actor domain.Actor, requestID string) (int64, error) {
	var changed int64
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := lookupRequest(ctx, repos, actor, requestID)
		if err != nil {
			return err
		}
		if err := authorizeRequest(actor, req); err != nil {
			return err
		}

		now := s.clock.Now()
		var adminID, track *string
		if actor.Role == domain.RoleClient {
			req.ClientHasUnreadUpdates = false
			req.ClientUnreadEventType = nil
			track = strPtr(req.TrackNumber)
		} else {
			// the marker belongs to the assigned lawyer; other staff only
			// mark their own notifications
			if req.IsAssignedTo(actor.ID) {
				req.LawyerHasUnreadUpdates = false
				req.LawyerUnreadEventType = nil
			}
			adminID = strPtr(actor.ID)
		}
		if err := repos.Requests.Update(ctx, req); err != nil {
			return err
		}
		changed, err = repos.Notifications.MarkReadForRequest(ctx, req.ID, adminID, track, now)
		return err
	})
	return changed, err
}

// List returns the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	repos := s.store.Repos()
	switch {
	case actor.Role == domain.RoleClient:
		return repos.Notifications.ListForTrack(ctx, actor.TrackNumber, unreadOnly)
	case actor.Role.IsStaff():
		return repos.Notifications.ListForAdmin(ctx, actor.ID, unreadOnly)
	default:
		return nil, apperrors.NewForbidden("notifications are bound to a person")
	}
}

// MarkRead marks one of the actor's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	repos := s.store.Repos()
	n, err := repos.Notifications.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "notification")
	}
	owned := (actor.Role == domain.RoleClient && n.RecipientTrackNumber != nil && *n.RecipientTrackNumber == actor.TrackNumber) ||
		(actor.Role.IsStaff() && n.RecipientAdminUserID != nil && *n.RecipientAdminUserID == actor.ID)
	if !owned {
		return apperrors.NewNotFound("notification", nil)
	}
	return repos.Notifications.MarkRead(ctx, id, s.clock.Now())
}

// RegisterHandlers subscribes to events.
func (s *NotificationService) RegisterHandlers() error {
	if s.dispatcher == nil {
		return nil
	}
	if err := s.dispatcher.Subscribe(events.EventExternalAlert, s.handleExternalAlert); err != nil {
		return err
	}
	return s.dispatcher.Subscribe(events.EventStatusChanged, s.handleStatusChanged)
}

func (s *NotificationService) handleExternalAlert(ctx context.Context, event events.Event) error {
	if s.sender == nil {
		return nil
	}
	var payload events.ExternalAlertPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, alertTimeout)
	defer cancel()
	sent, err := s.sender.Send(ctx, payload.Text)
	switch {
	case err != nil:
		s.metrics.RecordAlert("failed")
		s.logger.Warn("external alert failed",
			zap.String("request_id", event.RequestID),
			zap.String("track_number", payload.TrackNumber),
			zap.Error(err),
		)
	case sent:
		s.metrics.RecordAlert("sent")
	default:
		s.metrics.RecordAlert("skipped")
	}
	return nil
}

func (s *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	var payload events.StatusChangedPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	s.logger.Info("RequestStatusChanged",
		zap.String("request_id", event.RequestID),
		zap.String("track_number", payload.TrackNumber),
		zap.String("from", payload.FromStatus),
		zap.String("to", payload.ToStatus),
		zap.String("actor_role", string(event.Actor.Role)),
	)
	return nil
}

// lookupRequest loads the request a caller refers to: clients by their
// track number, staff by id. The row is locked when run in a transaction.
func lookupRequest(ctx context.Context, repos repository.Repositories, actor domain.Actor, requestID string) (*domain.Request, error) {
	var (
		req *domain.Request
		err error
	)
	if actor.Role == domain.RoleClient {
		req, err = repos.Requests.GetByTrackNumber(ctx, actor.TrackNumber)
		if err == nil {
			req, err = repos.Requests.GetByIDForUpdate(ctx, req.ID)
		}
	} else {
		req, err = repos.Requests.GetByIDForUpdate(ctx, requestID)
	}
	if err != nil {
		return nil, notFound(err, "request")
	}
	return req, nil
}
