package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "test-secret"

func newApp(log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(log)})
	app.Get("/me", AuthMiddleware(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": MemberID(c), "role": Role(c)})
	})
	app.Get("/admin", AuthMiddleware(secret), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func token(t *testing.T, id uint, role domain.Role) string {
	t.Helper()
	tok, err := jwt.GenerateAccessToken(id, "m@example.com", string(role), secret, 5)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp(zap.NewNop())

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", "not-a-token"))
	assert.Equal(t, http.StatusOK, get(t, app, "/me", token(t, 7, domain.RoleAssociate)))

	other, err := jwt.GenerateAccessToken(7, "m@example.com", "ASSOCIATE", "other-secret", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/me", other))
}

func TestAdminOnly(t *testing.T) {
	app := newApp(zap.NewNop())

	assert.Equal(t, http.StatusForbidden, get(t, app, "/admin", token(t, 2, domain.RoleDirector)))
	assert.Equal(t, http.StatusNoContent, get(t, app, "/admin", token(t, 1, domain.RoleAdmin)))
}

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	app := newApp(zap.New(core))

	assert.Equal(t, http.StatusTeapot, get(t, app, "/teapot", ""))
	assert.Equal(t, 0, logs.Len())

	assert.Equal(t, http.StatusInternalServerError, get(t, app, "/boom", ""))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "unhandled error", logs.All()[0].Message)
}
