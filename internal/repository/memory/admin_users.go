package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
)

type adminUserRepo struct{ binding }

func (r *adminUserRepo) Create(ctx context.Context, user *domain.AdminUser) error {
	return r.write(func(st *state) error {
		for _, existing := range st.adminUsers {
			if strings.EqualFold(existing.Email, user.Email) {
				return repository.ErrDuplicate
			}
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		st.adminUsers[user.ID] = *user
		return nil
	})
}

func (r *adminUserRepo) GetByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	var out *domain.AdminUser
	err := r.read(func(st *state) error {
		u, ok := st.adminUsers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *adminUserRepo) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	var out *domain.AdminUser
	err := r.read(func(st *state) error {
		for _, u := range st.adminUsers {
			if strings.EqualFold(u.Email, email) {
				found := u
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *adminUserRepo) ListActiveByRole(ctx context.Context, role domain.Role) ([]domain.AdminUser, error) {
	var out []domain.AdminUser
	err := r.read(func(st *state) error {
		for _, u := range st.adminUsers {
			if u.Active && u.Role == role {
				out = append(out, u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
