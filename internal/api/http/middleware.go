package httpapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-forecast-service/internal/ratelimit"
)

// RateLimitMiddleware gates every request through the limiter before it
// can reach the compute path. A rejected request answers 429 with the
// standard retry headers and the error envelope.
func RateLimitMiddleware(limiter *ratelimit.Limiter) fiber.Handler {
	limitHeader := strconv.FormatInt(limiter.Limit(), 10)

	return func(c *fiber.Ctx) error {
		identity := ratelimit.ClientIdentity(c.Get(fiber.HeaderXForwardedFor), c.IP())

		decision := limiter.Check(c.UserContext(), identity)
		if decision.Verdict == ratelimit.Denied {
			retryAfter := int(decision.RetryAfter.Seconds())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			c.Set("X-RateLimit-Limit", limitHeader)
			c.Set("X-RateLimit-Remaining", "0")
			return c.Status(fiber.StatusTooManyRequests).
				JSON(ErrorResponse(fiber.StatusTooManyRequests, "Too Many Requests"))
		}
		return c.Next()
	}
}
