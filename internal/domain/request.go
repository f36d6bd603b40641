package domain

import (
	"sort"
	"strings"
	"time"
)

// Request is the central work item submitted by a client.
type Request struct {
	ID               string
	TrackNumber      string
	ClientName       string
	ClientPhone      string
	ClientEmail      string
	TopicCode        string
	StatusCode       string
	Description      string
	ExtraFields      map[string]string
	AssignedLawyerID *string

	EffectiveRate *Money
	InvoiceAmount *Money
	RequestCost   *Money
	PaidAt        *time.Time
	PaidByAdminID *string

	ClientHasUnreadUpdates bool
	ClientUnreadEventType  *NotificationEventType
	LawyerHasUnreadUpdates bool
	LawyerUnreadEventType  *NotificationEventType

	Responsible string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StatusCodeNew is the status every public submission starts in.
const StatusCodeNew = "NEW"

// IsAssignedTo reports whether the request is assigned to the given lawyer.
func (r *Request) IsAssignedTo(adminID string) bool {
	return r.AssignedLawyerID != nil && *r.AssignedLawyerID == adminID
}

// FilledExtraKeys returns the extra field keys carrying a non-blank value.
func (r *Request) FilledExtraKeys() []string {
	keys := make([]string, 0, len(r.ExtraFields))
	for k, v := range r.ExtraFields {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// StatusHistory is an immutable status transition record.
type StatusHistory struct {
	ID            string
	RequestID     string
	Seq           int64
	FromStatus    *string
	ToStatus      string
	Comment       string
	ChangedByRole Role
	ChangedByID   *string
	CreatedAt     time.Time
}

// SortHistory orders rows by creation time, breaking ties by insertion sequence.
func SortHistory(rows []StatusHistory) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].Seq < rows[j].Seq
	})
}
