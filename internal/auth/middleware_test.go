package auth

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TronoSfera/Law-sub001/internal/clock"
	"github.com/TronoSfera/Law-sub001/internal/domain"
	"github.com/TronoSfera/Law-sub001/internal/repository/memory"
	apperrors "github.com/TronoSfera/Law-sub001/pkg/util/errorutil"
)

type authEnv struct {
	app    *fiber.App
	tokens *TokenManager
	store  *memory.Store
}

func newAuthEnv(t *testing.T, guard fiber.Handler) *authEnv {
	t.Helper()
	store := memory.New()
	tokens := NewTokenManager("secret", 60, 60, clock.NewFixed(epoch))
	mw := NewAuthMiddleware(tokens, store.Repos().AdminUsers)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	handlers := []fiber.Handler{mw.Handle}
	if guard != nil {
		handlers = append(handlers, guard)
	}
	handlers = append(handlers, func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(string(actor.Role) + "|" + actor.ID + "|" + actor.TrackNumber)
	})
	app.Get("/whoami", handlers...)
	return &authEnv{app: app, tokens: tokens, store: store}
}

func (e *authEnv) addUser(t *testing.T, role domain.Role, active bool) *domain.AdminUser {
	t.Helper()
	u := &domain.AdminUser{Email: string(role) + "@example.com", Name: "u", PasswordHash: "x", Role: role, Active: active}
	require.NoError(t, e.store.Repos().AdminUsers.Create(context.Background(), u))
	return u
}

func (e *authEnv) call(t *testing.T, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestMiddlewareResolvesActors(t *testing.T) {
	env := newAuthEnv(t, nil)
	lawyer := env.addUser(t, domain.RoleLawyer, true)

	staffToken, _, err := env.tokens.GenerateStaffToken(lawyer)
	require.NoError(t, err)
	status, body := env.call(t, "Bearer "+staffToken)
	assert.Equal(t, 200, status)
	assert.Equal(t, "LAWYER|"+lawyer.ID+"|", body)

	clientToken, _, err := env.tokens.GenerateClientToken("TRK-1")
	require.NoError(t, err)
	status, body = env.call(t, "bearer "+clientToken)
	assert.Equal(t, 200, status)
	assert.Equal(t, "CLIENT||TRK-1", body)
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	env := newAuthEnv(t, nil)
	disabled := env.addUser(t, domain.RoleAdmin, false)
	disabledToken, _, err := env.tokens.GenerateStaffToken(disabled)
	require.NoError(t, err)
	ghostToken, _, err := env.tokens.GenerateStaffToken(&domain.AdminUser{ID: "ghost", Role: domain.RoleAdmin})
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":  "",
		"scheme":   "Basic abc",
		"garbage":  "Bearer nope",
		"disabled": "Bearer " + disabledToken,
		"deleted":  "Bearer " + ghostToken,
	} {
		status, body := env.call(t, header)
		assert.Equal(t, 401, status, name)
		assert.Equal(t, apperrors.CodeUnauthorized, body, name)
	}
}

func TestRequireRoles(t *testing.T) {
	env := newAuthEnv(t, RequireRoles(domain.RoleAdmin))
	admin := env.addUser(t, domain.RoleAdmin, true)
	lawyer := env.addUser(t, domain.RoleLawyer, true)

	adminToken, _, err := env.tokens.GenerateStaffToken(admin)
	require.NoError(t, err)
	lawyerToken, _, err := env.tokens.GenerateStaffToken(lawyer)
	require.NoError(t, err)
	clientToken, _, err := env.tokens.GenerateClientToken("TRK-1")
	require.NoError(t, err)

	status, _ := env.call(t, "Bearer "+adminToken)
	assert.Equal(t, 200, status)
	status, body := env.call(t, "Bearer "+lawyerToken)
	assert.Equal(t, 403, status)
	assert.Equal(t, apperrors.CodeForbidden, body)
	status, _ = env.call(t, "Bearer "+clientToken)
	assert.Equal(t, 403, status)
}

func TestRequireClient(t *testing.T) {
	env := newAuthEnv(t, RequireClient())
	admin := env.addUser(t, domain.RoleAdmin, true)
	adminToken, _, err := env.tokens.GenerateStaffToken(admin)
	require.NoError(t, err)
	clientToken, _, err := env.tokens.GenerateClientToken("TRK-9")
	require.NoError(t, err)

	status, _ := env.call(t, "Bearer "+adminToken)
	assert.Equal(t, 403, status)
	status, _ = env.call(t, "Bearer "+clientToken)
	assert.Equal(t, 200, status)
}
