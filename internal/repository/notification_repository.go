package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	// CreateIfAbsent inserts the notification unless its dedupe key is already
	// taken. It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, n *domain.Notification) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListForAdmin(ctx context.Context, adminUserID string, unreadOnly bool) ([]domain.Notification, error)
	ListForTrack(ctx context.Context, trackNumber string, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	// MarkReadForRequest marks every unread notification of the recipient on
	// the request as read and returns how many changed.
	MarkReadForRequest(ctx context.Context, requestID string, adminUserID, trackNumber *string, at time.Time) (int64, error)
}

type notificationRepository struct {
	db DBTX
}

const notificationColumns = `id, recipient_admin_user_id, recipient_track_number, request_id, event_type,
        title, body, is_read, read_at, dedupe_key, created_at`

func (r *notificationRepository) CreateIfAbsent(ctx context.Context, n *domain.Notification) (bool, error) {
	if err := n.ValidateRecipient(); err != nil {
		return false, err
	}
	const query = `
        INSERT INTO notifications (recipient_admin_user_id, recipient_track_number, request_id, event_type,
            title, body, is_read, read_at, dedupe_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (dedupe_key) DO NOTHING
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		n.RecipientAdminUserID,
		n.RecipientTrackNumber,
		n.RequestID,
		n.EventType,
		n.Title,
		n.Body,
		n.IsRead,
		n.ReadAt,
		n.DedupeKey,
		n.CreatedAt,
	).Scan(&n.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return scanNotification(r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id))
}

func (r *notificationRepository) ListForAdmin(ctx context.Context, adminUserID string, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_admin_user_id=$1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	return r.list(ctx, query+` ORDER BY created_at DESC`, adminUserID)
}

func (r *notificationRepository) ListForTrack(ctx context.Context, trackNumber string, unreadOnly bool) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_track_number=$1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	return r.list(ctx, query+` ORDER BY created_at DESC`, trackNumber)
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET is_read=TRUE, read_at=COALESCE(read_at, $1) WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkReadForRequest(ctx context.Context, requestID string, adminUserID, trackNumber *string, at time.Time) (int64, error) {
	const query = `
        UPDATE notifications SET is_read=TRUE, read_at=$1
        WHERE request_id=$2 AND is_read=FALSE
          AND (($3::uuid IS NOT NULL AND recipient_admin_user_id=$3::uuid)
            OR ($4::text IS NOT NULL AND recipient_track_number=$4::text))`
	cmd, err := r.db.Exec(ctx, query, at, requestID, adminUserID, trackNumber)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) list(ctx context.Context, query string, arg any) ([]domain.Notification, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.RecipientAdminUserID,
		&n.RecipientTrackNumber,
		&n.RequestID,
		&n.EventType,
		&n.Title,
		&n.Body,
		&n.IsRead,
		&n.ReadAt,
		&n.DedupeKey,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
