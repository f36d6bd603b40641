package domain

import "time"

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusWaitingPayment InvoiceStatus = "WAITING_PAYMENT"
	InvoiceStatusPaid           InvoiceStatus = "PAID"
	InvoiceStatusCanceled       InvoiceStatus = "CANCELED"
)

// Valid reports whether the status is known.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusWaitingPayment, InvoiceStatusPaid, InvoiceStatusCanceled:
		return true
	}
	return false
}

// Invoice is one billing cycle on a request.
type Invoice struct {
	ID                  string
	RequestID           string
	Seq                 int64
	Number              string
	Status              InvoiceStatus
	Amount              Money
	Currency            string
	PayerDisplayName    string
	PayerDetails        string
	IssuedByAdminUserID *string
	IssuedByRole        Role
	IssuedAt            time.Time
	PaidAt              *time.Time
	PaidByAdminID       *string
	UpdatedAt           time.Time
}
