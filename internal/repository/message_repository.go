package repository

import (
	"context"
	"time"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// MessageRepository stores request chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.RequestMessage) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestMessage, error)
	// FirstByRole returns, per request, the creation time of the earliest
	// message written by the given role.
	FirstByRole(ctx context.Context, requestIDs []string, role domain.Role) (map[string]time.Time, error)
}

type messageRepository struct {
	db DBTX
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.RequestMessage) error {
	const query = `
        INSERT INTO request_messages (request_id, author_role, author_id, body, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.db.QueryRow(ctx, query, msg.RequestID, msg.AuthorRole, msg.AuthorID, msg.Body, msg.CreatedAt).Scan(&msg.ID)
}

func (r *messageRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestMessage, error) {
	const query = `
        SELECT id, request_id, author_role, author_id, body, created_at
        FROM request_messages WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestMessage
	for rows.Next() {
		var m domain.RequestMessage
		if err := rows.Scan(&m.ID, &m.RequestID, &m.AuthorRole, &m.AuthorID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *messageRepository) FirstByRole(ctx context.Context, requestIDs []string, role domain.Role) (map[string]time.Time, error) {
	result := make(map[string]time.Time, len(requestIDs))
	if len(requestIDs) == 0 {
		return result, nil
	}
	const query = `
        SELECT request_id, MIN(created_at) FROM request_messages
        WHERE request_id = ANY($1::uuid[]) AND author_role=$2
        GROUP BY request_id`
	rows, err := r.db.Query(ctx, query, requestIDs, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			first time.Time
		)
		if err := rows.Scan(&id, &first); err != nil {
			return nil, err
		}
		result[id] = first
	}
	return result, rows.Err()
}
