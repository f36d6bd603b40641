package dto

import (
	"encoding/json"
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// CreateInvoiceRequest payload. payer_details is checked against the closed
// requisites schema by the service.
type CreateInvoiceRequest struct {
	Number           string               `json:"number" validate:"max=64"`
	Amount           domain.Money         `json:"amount" validate:"gt=0"`
	Status           domain.InvoiceStatus `json:"status" validate:"omitempty,oneof=WAITING_PAYMENT PAID CANCELED"`
	PayerDisplayName string               `json:"payer_display_name" validate:"max=255"`
	PayerDetails     json.RawMessage      `json:"payer_details"`
}

// UpdateInvoiceRequest payload; omitted fields stay unchanged.
type UpdateInvoiceRequest struct {
	Amount           *domain.Money         `json:"amount"`
	Status           *domain.InvoiceStatus `json:"status" validate:"omitempty,oneof=WAITING_PAYMENT PAID CANCELED"`
	PayerDisplayName *string               `json:"payer_display_name" validate:"omitempty,max=255"`
	PayerDetails     json.RawMessage       `json:"payer_details"`
}

// InvoiceResponse is an invoice with decrypted requisites.
type InvoiceResponse struct {
	ID                  string               `json:"id"`
	RequestID           string               `json:"request_id"`
	Number              string               `json:"number"`
	Status              domain.InvoiceStatus `json:"status"`
	Amount              domain.Money         `json:"amount"`
	Currency            string               `json:"currency"`
	PayerDisplayName    string               `json:"payer_display_name"`
	PayerDetails        *domain.PayerDetails `json:"payer_details,omitempty"`
	IssuedByAdminUserID *string              `json:"issued_by_admin_user_id"`
	IssuedByRole        domain.Role          `json:"issued_by_role"`
	IssuedAt            time.Time            `json:"issued_at"`
	PaidAt              *time.Time           `json:"paid_at"`
	PaidByAdminID       *string              `json:"paid_by_admin_id"`
}
