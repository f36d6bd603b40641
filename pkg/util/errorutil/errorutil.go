package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to API clients.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeMissingRequirement = "MISSING_REQUIREMENT"
	CodeNoWaitingInvoice   = "NO_WAITING_INVOICE"
	CodeDuplicateInvoice   = "DUPLICATE_INVOICE_NUMBER"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("not found")

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
		Err:        ErrNotFound,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewInvalidTransition rejects a status change missing from the topic graph.
func NewInvalidTransition(topic, from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("transition %s: %s -> %s is not allowed", topic, from, to),
		http.StatusConflict,
		map[string]any{"topic_code": topic, "from_status": from, "to_status": to})
}

// NewMissingRequirement names the unmet data key or mime type of a transition.
func NewMissingRequirement(kind, item string) error {
	return NewDomainError(CodeMissingRequirement,
		fmt.Sprintf("transition requires %s %q", kind, item),
		http.StatusUnprocessableEntity,
		map[string]any{"requirement": kind, "missing": item})
}

// NewNoWaitingInvoice reports that a payment has nothing to settle.
func NewNoWaitingInvoice(requestID string, waiting int) error {
	return NewDomainError(CodeNoWaitingInvoice,
		"Нет счета в статусе «Ожидает оплату» (exactly one invoice waiting for payment is required)",
		http.StatusConflict,
		map[string]any{"request_id": requestID, "waiting_invoices": waiting})
}

// NewDuplicateInvoiceNumber reports an invoice number integrity violation.
func NewDuplicateInvoiceNumber(number string) error {
	return NewDomainError(CodeDuplicateInvoice,
		"invoice number already exists",
		http.StatusConflict,
		map[string]any{"number": number})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if IsNotFound(err) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
