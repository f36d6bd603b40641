package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TronoSfera/Law-sub001/internal/auth"
	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// AuthService handles staff login, client tokens and staff accounts.
type AuthService struct {
	store      repository.Store
	tokens     *auth.TokenManager
	bcryptCost int
	clock      clock.Clock
	logger     *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Store      repository.Store
	Tokens     *auth.TokenManager
	BcryptCost int
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:      deps.Store,
		tokens:     deps.Tokens,
		bcryptCost: deps.BcryptCost,
		clock:      deps.Clock,
		logger:     logger,
	}
}

// CreateStaffInput describes a new admin-portal account.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// LoginStaff authenticates staff and returns a role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.AdminUser, string, time.Time, error) {
	user, err := s.store.Repos().AdminUsers.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account disabled")
	}
	token, exp, err := s.tokens.GenerateStaffToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// IssueClientToken signs a token bound to req's track number.
func (s *AuthService) IssueClientToken(req *domain.Request) (string, time.Time, error) {
	return s.tokens.GenerateClientToken(req.TrackNumber)
}

// CreateStaff registers an ADMIN or LAWYER account. Admin only.
func (s *AuthService) CreateStaff(ctx context.Context, actor domain.Actor, in CreateStaffInput) (*domain.AdminUser, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators can create accounts")
	}
	return s.createStaff(ctx, in)
}

// EnsureBootstrapAdmin creates the first administrator when email is set
// and no account with it exists yet.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, email, password string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	_, err := s.store.Repos().AdminUsers.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !apperrors.IsNotFound(err) {
		return false, err
	}
	user, err := s.createStaff(ctx, CreateStaffInput{Name: "Administrator", Email: email, Password: password, Role: domain.RoleAdmin})
	if err != nil {
		return false, err
	}
	s.logger.Info("bootstrap administrator created", zap.String("admin_user_id", user.ID))
	return true, nil
}

func (s *AuthService) createStaff(ctx context.Context, in CreateStaffInput) (*domain.AdminUser, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	if !in.Role.IsStaff() {
		return nil, apperrors.NewValidationError("role must be ADMIN or LAWYER", map[string]any{"role": in.Role})
	}
	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperrors.NewValidationError("password too short", map[string]any{"min_length": auth.MinPasswordLength})
		}
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.AdminUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Repos().AdminUsers.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
