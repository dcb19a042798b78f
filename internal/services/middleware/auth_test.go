package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func testApp(cfg models.AuthConfig) *fiber.App {
	m := NewAuthMiddleware(cfg)
	app := fiber.New()
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/admin/balance", m.RequireAuth(), func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims != nil {
			return c.SendString(claims.OwnerID)
		}
		return c.SendString("anonymous")
	})
	app.Post("/admin/rates", m.RequireAuth(), m.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendString("updated")
	})
	return app
}

func TestRequireAuth_RejectsMissingToken(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/balance", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_AcceptsValidBearerToken(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	token := signToken(t, &Claims{
		OwnerID: "owner-a",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest("GET", "/admin/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAuth_RejectsExpiredToken(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	token := signToken(t, &Claims{
		OwnerID: "owner-a",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	req := httptest.NewRequest("GET", "/admin/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAuth_RejectsWrongSigningKey(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{OwnerID: "owner-a"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/admin/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdmin_RejectsNonAdminClaims(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	token := signToken(t, &Claims{
		OwnerID: "owner-a",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest("POST", "/admin/rates", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdmin_AllowsAdminClaims(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	token := signToken(t, &Claims{
		OwnerID: "owner-a",
		Admin:   true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest("POST", "/admin/rates", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthDisabled_PassesThrough(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: false})

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/balance", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSkipPaths_HealthNeedsNoToken(t *testing.T) {
	app := testApp(models.AuthConfig{Enabled: true, JWTSecret: testSecret})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
