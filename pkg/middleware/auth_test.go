package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"koins/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(m *auth.JWTManager) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(m, zap.NewNop()), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("userID").(string))
	})
	return app
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	app := newTestApp(auth.NewJWTManager("s", time.Hour, time.Hour))

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_RejectsRefreshToken(t *testing.T) {
	m := auth.NewJWTManager("s", time.Hour, time.Hour)
	app := newTestApp(m)
	refresh, err := m.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_StoresUserID(t *testing.T) {
	m := auth.NewJWTManager("s", time.Hour, time.Hour)
	app := newTestApp(m)
	token, err := m.GenerateToken("user-1", "a@b.co", "Ana")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
