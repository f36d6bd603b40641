package domain

import (
	"errors"
	"time"
)

// NotificationEventType classifies what happened on a request.
type NotificationEventType string

const (
	EventMessage      NotificationEventType = "MESSAGE"
	EventAttachment   NotificationEventType = "ATTACHMENT"
	EventStatusChange NotificationEventType = "STATUS_CHANGE"
	EventInvoice      NotificationEventType = "INVOICE"
	EventAssignment   NotificationEventType = "ASSIGNMENT"
	EventSLAOverdue   NotificationEventType = "SLA_OVERDUE"
)

// ErrRecipientBinding means a notification is bound to both or neither recipient kinds.
var ErrRecipientBinding = errors.New("notification must be bound to exactly one recipient")

// Notification is a recipient-bound event record.
type Notification struct {
	ID                   string
	RecipientAdminUserID *string
	RecipientTrackNumber *string
	RequestID            *string
	EventType            NotificationEventType
	Title                string
	Body                 string
	IsRead               bool
	ReadAt               *time.Time
	DedupeKey            *string
	CreatedAt            time.Time
}

// ValidateRecipient checks that exactly one recipient is bound.
func (n *Notification) ValidateRecipient() error {
	hasAdmin := n.RecipientAdminUserID != nil && *n.RecipientAdminUserID != ""
	hasTrack := n.RecipientTrackNumber != nil && *n.RecipientTrackNumber != ""
	if hasAdmin == hasTrack {
		return ErrRecipientBinding
	}
	return nil
}
