package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimit creates a per-principal rate limiter. Unauthenticated callers
// are keyed by IP. Polling endpoints get their own instance with a larger
// budget instead of a hard exemption, so runaway clients still hit a
// ceiling.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	return RateLimitWithSkip(identifier, max, window, nil)
}

// RateLimitWithSkip is RateLimit with an escape hatch: requests for which
// skip returns true bypass this limiter. Used where a nested route group
// carries its own (larger) budget and must not be counted twice.
func RateLimitWithSkip(identifier string, max int, window time.Duration, skip func(c *fiber.Ctx) bool) fiber.Handler {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Next:       skip,
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			key := fmt.Sprintf("%v", c.Locals("user_id"))
			if key == "" || key == "<nil>" || key == "0" {
				key = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, key)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "too many requests",
			})
		},
	})
}
