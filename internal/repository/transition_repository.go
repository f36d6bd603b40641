package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// TransitionRepository reads and maintains topic status transitions.
type TransitionRepository interface {
	Get(ctx context.Context, topicCode, fromStatus, toStatus string) (*domain.TopicStatusTransition, error)
	// ListByTopicFrom returns every configured edge leaving fromStatus for a topic.
	ListByTopicFrom(ctx context.Context, topicCode, fromStatus string) ([]domain.TopicStatusTransition, error)
	List(ctx context.Context) ([]domain.TopicStatusTransition, error)
	Upsert(ctx context.Context, t *domain.TopicStatusTransition) error
}

type transitionRepository struct {
	db DBTX
}

const transitionColumns = `id, topic_code, from_status, to_status, enabled, sla_hours,
        required_data_keys, required_mime_types, updated_at`

func (r *transitionRepository) Get(ctx context.Context, topicCode, fromStatus, toStatus string) (*domain.TopicStatusTransition, error) {
	const query = `SELECT ` + transitionColumns + ` FROM topic_status_transitions
        WHERE topic_code=$1 AND from_status=$2 AND to_status=$3`
	return scanTransition(r.db.QueryRow(ctx, query, topicCode, fromStatus, toStatus))
}

func (r *transitionRepository) ListByTopicFrom(ctx context.Context, topicCode, fromStatus string) ([]domain.TopicStatusTransition, error) {
	const query = `SELECT ` + transitionColumns + ` FROM topic_status_transitions
        WHERE topic_code=$1 AND from_status=$2 ORDER BY to_status`
	return r.list(ctx, query, topicCode, fromStatus)
}

func (r *transitionRepository) List(ctx context.Context) ([]domain.TopicStatusTransition, error) {
	return r.list(ctx, `SELECT `+transitionColumns+` FROM topic_status_transitions ORDER BY topic_code, from_status, to_status`)
}

func (r *transitionRepository) Upsert(ctx context.Context, t *domain.TopicStatusTransition) error {
	if t.RequiredDataKeys == nil {
		t.RequiredDataKeys = []string{}
	}
	if t.RequiredMimeTypes == nil {
		t.RequiredMimeTypes = []string{}
	}
	const query = `
        INSERT INTO topic_status_transitions (topic_code, from_status, to_status, enabled, sla_hours,
            required_data_keys, required_mime_types, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (topic_code, from_status, to_status) DO UPDATE SET
            enabled=EXCLUDED.enabled,
            sla_hours=EXCLUDED.sla_hours,
            required_data_keys=EXCLUDED.required_data_keys,
            required_mime_types=EXCLUDED.required_mime_types,
            updated_at=EXCLUDED.updated_at
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		t.TopicCode,
		t.FromStatus,
		t.ToStatus,
		t.Enabled,
		t.SLAHours,
		t.RequiredDataKeys,
		t.RequiredMimeTypes,
		t.UpdatedAt,
	).Scan(&t.ID)
}

func (r *transitionRepository) list(ctx context.Context, query string, args ...any) ([]domain.TopicStatusTransition, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TopicStatusTransition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func scanTransition(row pgx.Row) (*domain.TopicStatusTransition, error) {
	var t domain.TopicStatusTransition
	if err := row.Scan(
		&t.ID,
		&t.TopicCode,
		&t.FromStatus,
		&t.ToStatus,
		&t.Enabled,
		&t.SLAHours,
		&t.RequiredDataKeys,
		&t.RequiredMimeTypes,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
