package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// InvoiceRepository persists invoices.
type InvoiceRepository interface {
	// Create returns ErrDuplicate when the number is taken and
	// ErrWaitingInvoiceExists when the request already has a waiting invoice.
	Create(ctx context.Context, invoice *domain.Invoice) error
	Update(ctx context.Context, invoice *domain.Invoice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	// ListByRequest returns invoices ordered by (issued_at, seq).
	ListByRequest(ctx context.Context, requestID string) ([]domain.Invoice, error)
}

type invoiceRepository struct {
	db DBTX
}

const invoiceColumns = `id, request_id, seq, number, status, amount_minor, currency, payer_display_name,
        payer_details, issued_by_admin_user_id, issued_by_role, issued_at, paid_at, paid_by_admin_id, updated_at`

func (r *invoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        INSERT INTO invoices (request_id, number, status, amount_minor, currency, payer_display_name,
            payer_details, issued_by_admin_user_id, issued_by_role, issued_at, paid_at, paid_by_admin_id, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, seq`
	err := withSavepoint(ctx, r.db, func(db DBTX) error {
		return db.QueryRow(ctx, query,
			invoice.RequestID,
			invoice.Number,
			invoice.Status,
			invoice.Amount,
			invoice.Currency,
			invoice.PayerDisplayName,
			invoice.PayerDetails,
			invoice.IssuedByAdminUserID,
			invoice.IssuedByRole,
			invoice.IssuedAt,
			invoice.PaidAt,
			invoice.PaidByAdminID,
			invoice.UpdatedAt,
		).Scan(&invoice.ID, &invoice.Seq)
	})
	if pgErr, ok := uniqueViolation(err); ok {
		if pgErr.ConstraintName == "idx_invoices_one_waiting" {
			return ErrWaitingInvoiceExists
		}
		return ErrDuplicate
	}
	return err
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	const query = `
        UPDATE invoices SET number=$1, status=$2, amount_minor=$3, currency=$4, payer_display_name=$5,
            payer_details=$6, paid_at=$7, paid_by_admin_id=$8, updated_at=$9
        WHERE id=$10`
	var affected int64
	err := withSavepoint(ctx, r.db, func(db DBTX) error {
		cmd, err := db.Exec(ctx, query,
			invoice.Number,
			invoice.Status,
			invoice.Amount,
			invoice.Currency,
			invoice.PayerDisplayName,
			invoice.PayerDetails,
			invoice.PaidAt,
			invoice.PaidByAdminID,
			invoice.UpdatedAt,
			invoice.ID,
		)
		affected = cmd.RowsAffected()
		return err
	})
	if pgErr, ok := uniqueViolation(err); ok {
		if pgErr.ConstraintName == "idx_invoices_one_waiting" {
			return ErrWaitingInvoiceExists
		}
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if affected == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
}

func (r *invoiceRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Invoice, error) {
	rows, err := r.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
        WHERE request_id=$1 ORDER BY issued_at ASC, seq ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := row.Scan(
		&inv.ID,
		&inv.RequestID,
		&inv.Seq,
		&inv.Number,
		&inv.Status,
		&inv.Amount,
		&inv.Currency,
		&inv.PayerDisplayName,
		&inv.PayerDetails,
		&inv.IssuedByAdminUserID,
		&inv.IssuedByRole,
		&inv.IssuedAt,
		&inv.PaidAt,
		&inv.PaidByAdminID,
		&inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}
