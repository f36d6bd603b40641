package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	Update(ctx context.Context, req *domain.Request) error
	GetByID(ctx context.Context, id string) (*domain.Request, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error)
	GetByTrackNumber(ctx context.Context, track string) (*domain.Request, error)
	ListActive(ctx context.Context, terminalStatuses []string) ([]domain.Request, error)
}

type requestRepository struct {
	db DBTX
}

const requestColumns = `id, track_number, client_name, client_phone, client_email, topic_code, status_code,
        description, extra_fields, assigned_lawyer_id, effective_rate_minor, invoice_amount_minor,
        request_cost_minor, paid_at, paid_by_admin_id, client_has_unread_updates, client_unread_event_type,
        lawyer_has_unread_updates, lawyer_unread_event_type, responsible, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (track_number, client_name, client_phone, client_email, topic_code, status_code,
            description, extra_fields, assigned_lawyer_id, effective_rate_minor, invoice_amount_minor,
            request_cost_minor, responsible, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id`
	if req.ExtraFields == nil {
		req.ExtraFields = map[string]string{}
	}
	err := r.db.QueryRow(ctx, query,
		req.TrackNumber,
		req.ClientName,
		req.ClientPhone,
		req.ClientEmail,
		req.TopicCode,
		req.StatusCode,
		req.Description,
		req.ExtraFields,
		req.AssignedLawyerID,
		req.EffectiveRate,
		req.InvoiceAmount,
		req.RequestCost,
		req.Responsible,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID)
	if _, ok := uniqueViolation(err); ok {
		return ErrDuplicate
	}
	return err
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	const query = `
        UPDATE requests SET client_name=$1, client_phone=$2, client_email=$3, topic_code=$4, status_code=$5,
            description=$6, extra_fields=$7, assigned_lawyer_id=$8, effective_rate_minor=$9,
            invoice_amount_minor=$10, request_cost_minor=$11, paid_at=$12, paid_by_admin_id=$13,
            client_has_unread_updates=$14, client_unread_event_type=$15, lawyer_has_unread_updates=$16,
            lawyer_unread_event_type=$17, responsible=$18, updated_at=$19
        WHERE id=$20`
	cmd, err := r.db.Exec(ctx, query,
		req.ClientName,
		req.ClientPhone,
		req.ClientEmail,
		req.TopicCode,
		req.StatusCode,
		req.Description,
		req.ExtraFields,
		req.AssignedLawyerID,
		req.EffectiveRate,
		req.InvoiceAmount,
		req.RequestCost,
		req.PaidAt,
		req.PaidByAdminID,
		req.ClientHasUnreadUpdates,
		req.ClientUnreadEventType,
		req.LawyerHasUnreadUpdates,
		req.LawyerUnreadEventType,
		req.Responsible,
		req.UpdatedAt,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	return r.fetchSingle(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id)
}

func (r *requestRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Request, error) {
	return r.fetchSingle(ctx, `SELECT `+requestColumns+` FROM requests WHERE id=$1 FOR UPDATE`, id)
}

func (r *requestRepository) GetByTrackNumber(ctx context.Context, track string) (*domain.Request, error) {
	return r.fetchSingle(ctx, `SELECT `+requestColumns+` FROM requests WHERE track_number=$1`, track)
}

func (r *requestRepository) ListActive(ctx context.Context, terminalStatuses []string) ([]domain.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests`
	args := []any{}
	if len(terminalStatuses) > 0 {
		placeholders := make([]string, len(terminalStatuses))
		for i, code := range terminalStatuses {
			args = append(args, code)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(` WHERE status_code NOT IN (%s)`, strings.Join(placeholders, ","))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *requestRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Request, error) {
	return scanRequest(r.db.QueryRow(ctx, query, arg))
}

func scanRequest(row pgx.Row) (*domain.Request, error) {
	var req domain.Request
	if err := row.Scan(
		&req.ID,
		&req.TrackNumber,
		&req.ClientName,
		&req.ClientPhone,
		&req.ClientEmail,
		&req.TopicCode,
		&req.StatusCode,
		&req.Description,
		&req.ExtraFields,
		&req.AssignedLawyerID,
		&req.EffectiveRate,
		&req.InvoiceAmount,
		&req.RequestCost,
		&req.PaidAt,
		&req.PaidByAdminID,
		&req.ClientHasUnreadUpdates,
		&req.ClientUnreadEventType,
		&req.LawyerHasUnreadUpdates,
		&req.LawyerUnreadEventType,
		&req.Responsible,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
