package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// EventType enumerates supported event identifiers. It doubles as the topic name.
type EventType string

const (
	EventStatusChanged EventType = "request.status_changed"
	EventExternalAlert EventType = "request.external_alert"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role domain.Role `json:"role"`
	ID   string      `json:"id,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	RequestID string          `json:"request_id"`
	Actor     Actor           `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent encodes payload into a new event.
func NewEvent(eventType EventType, requestID string, actor domain.Actor, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Actor:     Actor{Role: actor.Role, ID: actor.ID},
		Timestamp: at,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	TrackNumber string `json:"track_number"`
	TopicCode   string `json:"topic_code"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	Kind        string `json:"kind"`
}

// ExternalAlertPayload carries a message for out-of-app delivery.
type ExternalAlertPayload struct {
	TrackNumber string                       `json:"track_number"`
	EventType   domain.NotificationEventType `json:"event_type"`
	Text        string                       `json:"text"`
}
