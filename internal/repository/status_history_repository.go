package repository

import (
	"context"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// StatusHistoryRepository stores the append-only status log.
type StatusHistoryRepository interface {
	Append(ctx context.Context, entry *domain.StatusHistory) error
	// ListByRequest returns rows ordered by (created_at, seq).
	ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistory, error)
	// ListByRequests groups ordered rows by request id.
	ListByRequests(ctx context.Context, requestIDs []string) (map[string][]domain.StatusHistory, error)
}

type statusHistoryRepository struct {
	db DBTX
}

const historyColumns = `id, request_id, seq, from_status, to_status, comment, changed_by_role, changed_by_id, created_at`

func (r *statusHistoryRepository) Append(ctx context.Context, entry *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (request_id, from_status, to_status, comment, changed_by_role, changed_by_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, seq`
	return r.db.QueryRow(ctx, query,
		entry.RequestID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Comment,
		entry.ChangedByRole,
		entry.ChangedByID,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.Seq)
}

func (r *statusHistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.StatusHistory, error) {
	grouped, err := r.ListByRequests(ctx, []string{requestID})
	if err != nil {
		return nil, err
	}
	return grouped[requestID], nil
}

func (r *statusHistoryRepository) ListByRequests(ctx context.Context, requestIDs []string) (map[string][]domain.StatusHistory, error) {
	result := make(map[string][]domain.StatusHistory, len(requestIDs))
	if len(requestIDs) == 0 {
		return result, nil
	}
	const query = `SELECT ` + historyColumns + ` FROM status_history
        WHERE request_id = ANY($1::uuid[]) ORDER BY request_id, created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, requestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(
			&h.ID,
			&h.RequestID,
			&h.Seq,
			&h.FromStatus,
			&h.ToStatus,
			&h.Comment,
			&h.ChangedByRole,
			&h.ChangedByID,
			&h.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[h.RequestID] = append(result[h.RequestID], h)
	}
	return result, rows.Err()
}
