package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/TronoSfera/Law-sub001/internal/domain"
)

// AdminUserRepository manages admin-portal accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, user *domain.AdminUser) error
	GetByID(ctx context.Context, id string) (*domain.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.AdminUser, error)
}

type adminUserRepository struct {
	db DBTX
}

const adminUserColumns = `id, name, email, password_hash, role, active, created_at, updated_at`

func (r *adminUserRepository) Create(ctx context.Context, user *domain.AdminUser) error {
	const query = `
        INSERT INTO admin_users (name, email, password_hash, role, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if _, ok := uniqueViolation(err); ok {
		return ErrDuplicate
	}
	return err
}

func (r *adminUserRepository) GetByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	return scanAdminUser(r.db.QueryRow(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE id=$1`, id))
}

func (r *adminUserRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	return scanAdminUser(r.db.QueryRow(ctx, `SELECT `+adminUserColumns+` FROM admin_users WHERE lower(email)=lower($1)`, email))
}

func (r *adminUserRepository) ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.AdminUser, error) {
	rows, err := r.db.Query(ctx, `SELECT `+adminUserColumns+` FROM admin_users
        WHERE role=$1 AND active=TRUE ORDER BY created_at ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AdminUser
	for rows.Next() {
		u, err := scanAdminUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}
	return result, rows.Err()
}

func scanAdminUser(row pgx.Row) (*domain.AdminUser, error) {
	var u domain.AdminUser
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
