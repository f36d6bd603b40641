package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

// RequireRoles admits callers holding one of allowed.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits ADMIN and LAWYER.
func RequireStaff() fiber.Handler {
	return RequireRoles(domain.RoleAdmin, domain.RoleLawyer)
}

// RequireClient admits track-bound client tokens.
func RequireClient() fiber.Handler {
	return RequireRoles(domain.RoleClient)
}
