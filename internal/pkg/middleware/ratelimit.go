package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/benzaid32/the-assist-app-sub002/internal/pkg/ratelimit"
)

// RateLimitMiddleware enforces the fixed-window budget for one endpoint name
// and sets the standard rate-limit response headers. It expects an
// authenticated user in locals; bearer header or `?token=` both reach here
// through the auth middleware.
func RateLimitMiddleware(limiter *ratelimit.Limiter, endpoint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals(KeyUserID).(uint)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthenticated"})
		}

		result := limiter.CheckAndConsume(c.Context(), userID, endpoint)
		if result.MaxCount > 0 {
			remaining := result.MaxCount - result.CurrentCount
			if remaining < 0 {
				remaining = 0
			}
			c.Set("X-RateLimit-Limit", strconv.Itoa(result.MaxCount))
			c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))
		}

		if result.Limited {
			retryAfter := result.RetryAfterSeconds(time.Now())
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":      "resource_exhausted",
				"message":    "Rate limit exceeded",
				"retryAfter": retryAfter,
			})
		}

		return c.Next()
	}
}
