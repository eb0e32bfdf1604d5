package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/autovideo/api/internal/auth"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/pkg/response"
)

// AuthMiddleware identifies the caller of /api routes
type AuthMiddleware struct {
	mode      string
	jwtSecret string
}

// NewAuthMiddleware creates auth middleware for the configured mode
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	mode := cfg.Mode
	if mode == "" {
		mode = config.AuthModeNone
	}
	return &AuthMiddleware{
		mode:      mode,
		jwtSecret: cfg.JWTSecret,
	}
}

// Authenticate resolves the user id. In "none" mode every request passes anonymously.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	switch m.mode {
	case config.AuthModeJWT:
		return m.bearer
	case config.AuthModeGateway:
		return gateway
	default:
		return func(c *fiber.Ctx) error { return c.Next() }
	}
}

// bearer validates a JWT from the Authorization header
func (m *AuthMiddleware) bearer(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return response.Unauthorized(c, "Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return response.Unauthorized(c, "Invalid authorization header format")
	}

	claims, err := auth.ValidateToken(parts[1], m.jwtSecret)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired token")
	}

	c.Locals("userId", claims.UserID)
	c.Locals("email", claims.Email)
	return c.Next()
}

// gateway reads user identity from X-User-* headers set by a ForwardAuth proxy
func gateway(c *fiber.Ctx) error {
	userID := c.Get("X-User-Id")
	if userID == "" {
		return response.Unauthorized(c, "Missing user identity headers")
	}

	c.Locals("userId", userID)
	c.Locals("email", c.Get("X-User-Email"))
	return c.Next()
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}
