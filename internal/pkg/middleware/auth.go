package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/auth"
)

// Locals keys set by the auth middleware.
const (
	KeyUser    = "AUTH_USER"
	KeyUserID  = "AUTH_USER_ID"
	KeyIsAdmin = "AUTH_IS_ADMIN"
)

// TokenAuthMiddleware authenticates requests carrying a bearer API token.
func TokenAuthMiddleware(authSvc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "message": "Missing API token"})
		}

		user, err := authSvc.AuthenticateToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrUnauthenticated) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated", "message": "Invalid API token"})
			}
			log.Errorf("token lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal", "message": "Token verification failed"})
		}

		c.Locals(KeyUser, user)
		c.Locals(KeyUserID, user.ID)
		c.Locals(KeyIsAdmin, user.IsAdmin())

		return c.Next()
	}
}

// AdminOnlyMiddleware rejects callers without the admin claim. Must run after
// TokenAuthMiddleware.
func AdminOnlyMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isAdmin, _ := c.Locals(KeyIsAdmin).(bool); !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "permission_denied", "message": "Admin privileges required"})
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user set by TokenAuthMiddleware.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(KeyUser).(*models.User)
	return user
}

func extractBearerToken(c *fiber.Ctx) string {
	authHeader := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	// Query fallback for callers that cannot set headers.
	return strings.TrimSpace(c.Query("token"))
}
