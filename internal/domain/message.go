package domain

import "time"

// RequestMessage is a chat message in a request thread.
type RequestMessage struct {
	ID         string
	RequestID  string
	AuthorRole Role
	AuthorID   *string
	Body       string
	CreatedAt  time.Time
}

// Attachment stores metadata for a file uploaded to a request.
type Attachment struct {
	ID             string
	RequestID      string
	MessageID      *string
	FileName       string
	MimeType       string
	SizeBytes      int64
	StorageKey     string
	UploadedByRole Role
	CreatedAt      time.Time
}
