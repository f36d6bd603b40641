package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// AuthMiddleware validates bearer tokens and resolves the calling actor.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.AdminUserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.AdminUserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. Staff tokens are
// checked against the account so deactivation and role changes apply at once.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	var actor domain.Actor
	switch claims.Role {
	case domain.RoleClient:
		actor = domain.Actor{Role: domain.RoleClient, TrackNumber: claims.TrackNumber}
	case domain.RoleAdmin, domain.RoleLawyer:
		user, err := m.users.GetByID(c.UserContext(), claims.Subject)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewUnauthorized("account not found")
			}
			return apperrors.MapError(err)
		}
		if !user.Active {
			return apperrors.NewUnauthorized("account disabled")
		}
		actor = domain.Actor{Role: user.Role, ID: user.ID, Email: user.Email}
	default:
		return apperrors.NewUnauthorized("unknown role")
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated caller.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}
