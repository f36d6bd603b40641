package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/TronoSfera/Law-sub001/internal/api/dto"
	"github.com/TronoSfera/Law-sub001/internal/auth"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// bind parses the JSON body into dst and runs its validation rules.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	return dto.Validate(dst)
}
