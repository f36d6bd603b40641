package dto

import (
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// NotificationResponse is one in-app notification.
type NotificationResponse struct {
	ID        string                       `json:"id"`
	RequestID *string                      `json:"request_id"`
	EventType domain.NotificationEventType `json:"event_type"`
	Title     string                       `json:"title"`
	Body      string                       `json:"body"`
	IsRead    bool                         `json:"is_read"`
	ReadAt    *time.Time                   `json:"read_at"`
	CreatedAt time.Time                    `json:"created_at"`
}
