package domain

import "time"

// StatusKind drives the billing side effects of entering a status.
type StatusKind string

const (
	StatusKindDefault StatusKind = "DEFAULT"
	StatusKindInvoice StatusKind = "INVOICE"
	StatusKindPaid    StatusKind = "PAID"
)

// Valid reports whether the kind is one of the known kinds.
func (k StatusKind) Valid() bool {
	switch k {
	case StatusKindDefault, StatusKindInvoice, StatusKindPaid:
		return true
	}
	return false
}

// Status is a dictionary entry describing a request status.
type Status struct {
	Code            string
	Name            string
	Kind            StatusKind
	InvoiceTemplate *string
	IsTerminal      bool
	SortOrder       int
	UpdatedAt       time.Time
}

// TopicStatusTransition is a configured edge of a topic's status graph.
type TopicStatusTransition struct {
	ID                string
	TopicCode         string
	FromStatus        string
	ToStatus          string
	Enabled           bool
	SLAHours          *int
	RequiredDataKeys  []string
	RequiredMimeTypes []string
	UpdatedAt         time.Time
}
