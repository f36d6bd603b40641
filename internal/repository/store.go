package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = pgx.ErrNoRows

// ErrDuplicate indicates that a unique constraint rejected an insert.
var ErrDuplicate = errors.New("duplicate")

// ErrWaitingInvoiceExists indicates a second WAITING_PAYMENT invoice for a request.
var ErrWaitingInvoiceExists = errors.New("request already has a waiting invoice")

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories struct {
	Requests      RequestRepository
	History       StatusHistoryRepository
	Invoices      InvoiceRepository
	Notifications NotificationRepository
	Transitions   TransitionRepository
	Statuses      StatusRepository
	Messages      MessageRepository
	Attachments   AttachmentRepository
	AdminUsers    AdminUserRepository
}

// Store hands out repositories and runs units of work.
type Store interface {
	// Repos returns repositories that run each call in its own implicit transaction.
	Repos() Repositories
	// WithTx runs fn inside one transaction; any returned error rolls everything back.
	WithTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore builds a Store over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Repos() Repositories {
	return newRepositories(s.pool)
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

func (s *pgStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Requests:      &requestRepository{db: db},
		History:       &statusHistoryRepository{db: db},
		Invoices:      &invoiceRepository{db: db},
		Notifications: &notificationRepository{db: db},
		Transitions:   &transitionRepository{db: db},
		Statuses:      &statusRepository{db: db},
		Messages:      &messageRepository{db: db},
		Attachments:   &attachmentRepository{db: db},
		AdminUsers:    &adminUserRepository{db: db},
	}
}

func uniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr, true
	}
	return nil, false
}

// withSavepoint runs fn in a nested transaction so a failed statement does not
// abort the caller's transaction.
func withSavepoint(ctx context.Context, db DBTX, fn func(DBTX) error) error {
	return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
