package dto

import (
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body" validate:"required,max=10000"`
}

// CreateAttachmentRequest registers an uploaded file.
type CreateAttachmentRequest struct {
	MessageID  *string `json:"message_id" validate:"omitempty,uuid"`
	FileName   string  `json:"file_name" validate:"required,max=255"`
	MimeType   string  `json:"mime_type" validate:"required,max=255"`
	SizeBytes  int64   `json:"size_bytes" validate:"required,gt=0"`
	StorageKey string  `json:"storage_key" validate:"required,max=1024"`
}

// MessageResponse is one thread message.
type MessageResponse struct {
	ID         string      `json:"id"`
	AuthorRole domain.Role `json:"author_role"`
	AuthorID   *string     `json:"author_id,omitempty"`
	Body       string      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AttachmentResponse is one file on the request.
type AttachmentResponse struct {
	ID             string      `json:"id"`
	MessageID      *string     `json:"message_id"`
	FileName       string      `json:"file_name"`
	MimeType       string      `json:"mime_type"`
	SizeBytes      int64       `json:"size_bytes"`
	UploadedByRole domain.Role `json:"uploaded_by_role"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ThreadResponse is the request conversation.
type ThreadResponse struct {
	Messages    []MessageResponse    `json:"messages"`
	Attachments []AttachmentResponse `json:"attachments"`
}
