package service

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

const maxAttachmentBytes = 50 << 20

// MessageService manages the per-request conversation thread.
type MessageService struct {
	store    repository.Store
	notifier *NotificationService
	clock    clock.Clock
	logger   *zap.Logger
}

// MessageDependencies bundles collaborators for the message service.
type MessageDependencies struct {
	Store    repository.Store
	Notifier *NotificationService
	Clock    clock.Clock
	Logger   *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{store: deps.Store, notifier: deps.Notifier, clock: deps.Clock, logger: logger}
}

// AttachmentInput is metadata of an already uploaded file.
type AttachmentInput struct {
	MessageID  *string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
}

// Thread is a request's messages and attachments.
type Thread struct {
	Messages    []domain.RequestMessage
	Attachments []domain.Attachment
}

// AddMessage posts body on the request and notifies the other side.
func (s *MessageService) AddMessage(ctx context.Context, actor domain.Actor, requestID, body string) (*domain.RequestMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", map[string]any{"field": "body"})
	}

	outbox := s.notifier.NewOutbox()
	var msg *domain.RequestMessage
	err := s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := lookupRequest(ctx, repos, actor, requestID)
		if err != nil {
			return err
		}
		if err := authorizeRequest(actor, req); err != nil {
			return err
		}
		msg = &domain.RequestMessage{
			RequestID:  req.ID,
			AuthorRole: actor.Role,
			AuthorID:   actorIDPtr(actor),
			Body:       body,
			CreatedAt:  s.clock.Now(),
		}
		if err := repos.Messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		_, err = s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:  domain.EventMessage,
			Actor: actor,
			Title: "Новое сообщение по заявке",
			Body:  preview(body, 200),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(ctx)
	return msg, nil
}

// AddAttachment records an uploaded file on the request. Attachment mime
// types are the evidence for transitions that require documents.
func (s *MessageService) AddAttachment(ctx context.Context, actor domain.Actor, requestID string, in AttachmentInput) (*domain.Attachment, error) {
	mimeType, err := normalizeUploadMime(in.MimeType)
	if err != nil {
		return nil, err
	}
	in.FileName = strings.TrimSpace(in.FileName)
	if in.FileName == "" || strings.TrimSpace(in.StorageKey) == "" {
		return nil, apperrors.NewValidationError("file_name and storage_key are required", nil)
	}
	if in.SizeBytes <= 0 || in.SizeBytes > maxAttachmentBytes {
		return nil, apperrors.NewValidationError("attachment size out of range", map[string]any{"size_bytes": in.SizeBytes, "max": maxAttachmentBytes})
	}

	outbox := s.notifier.NewOutbox()
	var att *domain.Attachment
	err = s.store.WithTx(ctx, func(repos repository.Repositories) error {
		req, err := lookupRequest(ctx, repos, actor, requestID)
		if err != nil {
			return err
		}
		if err := authorizeRequest(actor, req); err != nil {
			return err
		}
		att = &domain.Attachment{
			RequestID:      req.ID,
			MessageID:      in.MessageID,
			FileName:       in.FileName,
			MimeType:       mimeType,
			SizeBytes:      in.SizeBytes,
			StorageKey:     in.StorageKey,
			UploadedByRole: actor.Role,
			CreatedAt:      s.clock.Now(),
		}
		if err := repos.Attachments.Create(ctx, att); err != nil {
			return fmt.Errorf("create attachment: %w", err)
		}
		_, err = s.notifier.Notify(ctx, repos, outbox, req, NotifyEvent{
			Type:  domain.EventAttachment,
			Actor: actor,
			Title: "Новый файл по заявке",
			Body:  att.FileName,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	outbox.Flush(ctx)
	return att, nil
}

// Thread returns the conversation visible to actor.
func (s *MessageService) Thread(ctx context.Context, actor domain.Actor, requestID string) (*Thread, error) {
	repos := s.store.Repos()
	var (
		req *domain.Request
		err error
	)
	if actor.Role == domain.RoleClient {
		req, err = repos.Requests.GetByTrackNumber(ctx, actor.TrackNumber)
	} else {
		req, err = repos.Requests.GetByID(ctx, requestID)
	}
	if err != nil {
		return nil, notFound(err, "request")
	}
	if err := authorizeRequest(actor, req); err != nil {
		return nil, err
	}
	messages, err := repos.Messages.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	attachments, err := repos.Attachments.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &Thread{Messages: messages, Attachments: attachments}, nil
}

func normalizeUploadMime(raw string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil || !strings.Contains(mediaType, "/") || strings.HasSuffix(mediaType, "/*") {
		return "", apperrors.NewValidationError("invalid mime type", map[string]any{"mime_type": raw})
	}
	return mediaType, nil
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
