package repository

import (
	"context"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// StatusRepository manages the status dictionary.
type StatusRepository interface {
	Get(ctx context.Context, code string) (*domain.Status, error)
	List(ctx context.Context) ([]domain.Status, error)
	Upsert(ctx context.Context, s *domain.Status) error
}

type statusRepository struct {
	db DBTX
}

const statusColumns = `code, name, kind, invoice_template, is_terminal, sort_order, updated_at`

func (r *statusRepository) Get(ctx context.Context, code string) (*domain.Status, error) {
	var s domain.Status
	err := r.db.QueryRow(ctx, `SELECT `+statusColumns+` FROM statuses WHERE code=$1`, code).Scan(
		&s.Code, &s.Name, &s.Kind, &s.InvoiceTemplate, &s.IsTerminal, &s.SortOrder, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statusRepository) List(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.db.Query(ctx, `SELECT `+statusColumns+` FROM statuses ORDER BY sort_order, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var s domain.Status
		if err := rows.Scan(&s.Code, &s.Name, &s.Kind, &s.InvoiceTemplate, &s.IsTerminal, &s.SortOrder, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *statusRepository) Upsert(ctx context.Context, s *domain.Status) error {
	const query = `
        INSERT INTO statuses (code, name, kind, invoice_template, is_terminal, sort_order, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (code) DO UPDATE SET
            name=EXCLUDED.name,
            kind=EXCLUDED.kind,
            invoice_template=EXCLUDED.invoice_template,
            is_terminal=EXCLUDED.is_terminal,
            sort_order=EXCLUDED.sort_order,
            updated_at=EXCLUDED.updated_at`
	_, err := r.db.Exec(ctx, query, s.Code, s.Name, s.Kind, s.InvoiceTemplate, s.IsTerminal, s.SortOrder, s.UpdatedAt)
	return err
}
