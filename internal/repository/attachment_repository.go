package repository

import (
	"context"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// AttachmentRepository stores attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, att *domain.Attachment) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	db DBTX
}

func (r *attachmentRepository) Create(ctx context.Context, att *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (request_id, message_id, file_name, mime_type, size_bytes, storage_key, uploaded_by_role, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		att.RequestID,
		att.MessageID,
		att.FileName,
		att.MimeType,
		att.SizeBytes,
		att.StorageKey,
		att.UploadedByRole,
		att.CreatedAt,
	).Scan(&att.ID)
}

func (r *attachmentRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, request_id, message_id, file_name, mime_type, size_bytes, storage_key, uploaded_by_role, created_at
        FROM attachments WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.RequestID, &a.MessageID, &a.FileName, &a.MimeType, &a.SizeBytes, &a.StorageKey, &a.UploadedByRole, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
