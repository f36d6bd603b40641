package dto

import (
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// CreateRequestRequest is the public intake form.
type CreateRequestRequest struct {
	ClientName  string            `json:"client_name" validate:"required,max=255"`
	ClientPhone string            `json:"client_phone" validate:"required,max=32"`
	ClientEmail string            `json:"client_email" validate:"omitempty,email"`
	TopicCode   string            `json:"topic_code" validate:"required,max=64"`
	Description string            `json:"description" validate:"max=10000"`
	ExtraFields map[string]string `json:"extra_fields" validate:"omitempty,max=50,dive,keys,max=64,endkeys,max=2000"`
}

// AssignRequest payload.
type AssignRequest struct {
	LawyerID string `json:"lawyer_id" validate:"required,uuid"`
}

// FinancialsRequest payload. Amounts accept numbers or decimal strings.
type FinancialsRequest struct {
	EffectiveRate *domain.Money `json:"effective_rate"`
	RequestCost   *domain.Money `json:"request_cost"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  string `json:"status" validate:"required,max=64"`
	Comment string `json:"comment" validate:"max=2000"`
}

// RequestResponse is the staff view of a request.
type RequestResponse struct {
	ID                     string                        `json:"id"`
	TrackNumber            string                        `json:"track_number"`
	ClientName             string                        `json:"client_name"`
	ClientPhone            string                        `json:"client_phone"`
	ClientEmail            string                        `json:"client_email,omitempty"`
	TopicCode              string                        `json:"topic_code"`
	StatusCode             string                        `json:"status_code"`
	Description            string                        `json:"description"`
	ExtraFields            map[string]string             `json:"extra_fields"`
	AssignedLawyerID       *string                       `json:"assigned_lawyer_id"`
	EffectiveRate          *domain.Money                 `json:"effective_rate"`
	InvoiceAmount          *domain.Money                 `json:"invoice_amount"`
	RequestCost            *domain.Money                 `json:"request_cost"`
	PaidAt                 *time.Time                    `json:"paid_at"`
	PaidByAdminID          *string                       `json:"paid_by_admin_id"`
	ClientHasUnreadUpdates bool                          `json:"client_has_unread_updates"`
	ClientUnreadEventType  *domain.NotificationEventType `json:"client_unread_event_type"`
	LawyerHasUnreadUpdates bool                          `json:"lawyer_has_unread_updates"`
	LawyerUnreadEventType  *domain.NotificationEventType `json:"lawyer_unread_event_type"`
	Responsible            string                        `json:"responsible"`
	CreatedAt              time.Time                     `json:"created_at"`
	UpdatedAt              time.Time                     `json:"updated_at"`
}

// ClientRequestResponse is what the public portal shows the client.
type ClientRequestResponse struct {
	TrackNumber      string                        `json:"track_number"`
	TopicCode        string                        `json:"topic_code"`
	StatusCode       string                        `json:"status_code"`
	Description      string                        `json:"description"`
	InvoiceAmount    *domain.Money                 `json:"invoice_amount"`
	PaidAt           *time.Time                    `json:"paid_at"`
	HasUnreadUpdates bool                          `json:"has_unread_updates"`
	UnreadEventType  *domain.NotificationEventType `json:"unread_event_type"`
	CreatedAt        time.Time                     `json:"created_at"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

// ClientCreatedResponse is returned once on submission.
type ClientCreatedResponse struct {
	Request     ClientRequestResponse `json:"request"`
	AccessToken string                `json:"access_token"`
	ExpiresAt   time.Time             `json:"expires_at"`
}

// HistoryEntryResponse is one status history row.
type HistoryEntryResponse struct {
	ID            string      `json:"id"`
	FromStatus    *string     `json:"from_status"`
	ToStatus      string      `json:"to_status"`
	Comment       string      `json:"comment,omitempty"`
	ChangedByRole domain.Role `json:"changed_by_role"`
	ChangedByID   *string     `json:"changed_by_id"`
	CreatedAt     time.Time   `json:"created_at"`
}

// StatusChangeResponse reports a committed transition.
type StatusChangeResponse struct {
	Request         RequestResponse      `json:"request"`
	History         HistoryEntryResponse `json:"history"`
	BillingAction   string               `json:"billing_action,omitempty"`
	Invoice         *InvoiceResponse     `json:"invoice,omitempty"`
	InternalCreated int                  `json:"notifications_created"`
	ExternalQueued  int                  `json:"alerts_queued"`
}
