package dto

import (
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// StatusPayload is one status definition, used both ways.
type StatusPayload struct {
	Code            string            `json:"code" validate:"required,max=64"`
	Name            string            `json:"name" validate:"required,max=255"`
	Kind            domain.StatusKind `json:"kind" validate:"omitempty,oneof=DEFAULT INVOICE PAID"`
	InvoiceTemplate *string           `json:"invoice_template" validate:"omitempty,max=4000"`
	IsTerminal      bool              `json:"is_terminal"`
	SortOrder       int               `json:"sort_order"`
}

// TransitionPayload is one transition edge, used both ways.
type TransitionPayload struct {
	ID                string     `json:"id,omitempty"`
	TopicCode         string     `json:"topic_code" validate:"required,max=64"`
	FromStatus        string     `json:"from_status" validate:"required,max=64"`
	ToStatus          string     `json:"to_status" validate:"required,max=64"`
	Enabled           bool       `json:"enabled"`
	SLAHours          *int       `json:"sla_hours" validate:"omitempty,gt=0"`
	RequiredDataKeys  []string   `json:"required_data_keys" validate:"omitempty,dive,max=64"`
	RequiredMimeTypes []string   `json:"required_mime_types" validate:"omitempty,dive,max=255"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// UpsertStatusesRequest replaces or adds statuses.
type UpsertStatusesRequest struct {
	Items []StatusPayload `json:"items" validate:"required,min=1,dive"`
}

// UpsertTransitionsRequest replaces or adds transitions.
type UpsertTransitionsRequest struct {
	Items []TransitionPayload `json:"items" validate:"required,min=1,dive"`
}
