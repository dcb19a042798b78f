package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/frontdesk-ai/frontdesk/internal/models"
)

const authContextKey = "auth_claims"

// AuthMiddleware validates JWT bearer tokens on admin routes.
type AuthMiddleware struct {
	config    models.AuthConfig
	skipPaths []string
}

func NewAuthMiddleware(cfg models.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		config: cfg,
		skipPaths: []string{
			"/health",
			"/webhooks",
			"/voice",
		},
	}
}

// Claims carries the authenticated principal for downstream handlers.
type Claims struct {
	OwnerID string `json:"owner_id"`
	Admin   bool   `json:"admin"`
	jwt.RegisteredClaims
}

// GetClaims returns the claims stored by RequireAuth, or nil when auth is
// disabled or the request was unauthenticated.
func GetClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(authContextKey).(*Claims)
	return claims
}

func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.config.Enabled {
			return c.Next()
		}

		if m.shouldSkipPath(c.Path()) {
			return c.Next()
		}

		token := m.extractToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		claims, err := m.parseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(authContextKey, claims)
		return c.Next()
	}
}

// RequireAdmin gates balance adjustments and rate updates behind the admin
// claim.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.config.Enabled {
			return c.Next()
		}

		claims := GetClaims(c)
		if claims == nil || !claims.Admin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "This operation requires admin privileges",
			})
		}
		return c.Next()
	}
}

func (m *AuthMiddleware) parseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

func (m *AuthMiddleware) extractToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func (m *AuthMiddleware) shouldSkipPath(path string) bool {
	for _, skip := range m.skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}
