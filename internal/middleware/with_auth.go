package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/perscom/personnel-api/internal/utils"
)

// Role constants used by the RequireRole guard.
const (
	AuthRoleAny   = "any"
	AuthRoleUser  = "user"
	AuthRoleAdmin = "admin"
)

// RequireRole guards a route group behind an authenticated principal with
// the given role. AuthRoleAny only requires authentication.
func RequireRole(role string) fiber.Handler {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		if c.Locals("user_id") == nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		if role == AuthRoleAny {
			return c.Next()
		}

		if roleFromLocals(c) != role {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return c.Next()
	}
}
