package middleware

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/models"
)

// Describer produces the human-readable description of an audit entry. It
// runs after the handler, so it can reference values only known once the
// response exists.
type Describer func(c *fiber.Ctx, responseBody []byte) string

// Static returns a Describer that always yields the given text.
func Static(description string) Describer {
	return func(*fiber.Ctx, []byte) string { return description }
}

// Audit records an audit entry for every request whose handler produced a
// status in [200,400). The entry is handed to the recorder's background
// queue, so the response is never delayed by audit I/O and recording
// failures never reach the client.
func Audit(recorder audit.Recorder, action string, describe Describer) fiber.Handler {
	if describe == nil {
		describe = Static(action)
	}

	return func(c *fiber.Ctx) error {
		// Body keys must be captured before the handler, which may consume
		// or rewrite the request body.
		bodyKeys := topLevelBodyKeys(c.Body())
		method := c.Method()
		path := c.Path()

		err := c.Next()
		if err != nil {
			return err
		}

		status := c.Response().StatusCode()
		if status < fiber.StatusOK || status >= fiber.StatusBadRequest {
			return nil
		}

		entry := audit.Entry{
			Action:       action,
			Description:  describe(c, c.Response().Body()),
			TargetUserID: targetUserID(c),
			IPAddress:    clientIP(c),
			UserAgent:    headerOrUnknown(c, fiber.HeaderUserAgent),
			Metadata: map[string]interface{}{
				"method": method,
				"path":   path,
				"body":   bodyKeys,
			},
		}
		entry.ActorType, entry.UserID, entry.AdminID = actorFromContext(c)

		recorder.Record(entry)
		return nil
	}
}

func actorFromContext(c *fiber.Ctx) (string, *uint, *uint) {
	id := userIDFromLocals(c)
	switch roleFromLocals(c) {
	case "admin":
		if id != nil {
			return models.ActorTypeAdmin, nil, id
		}
	case "user":
		if id != nil {
			return models.ActorTypeUser, id, nil
		}
	}
	return models.ActorTypeSystem, nil, nil
}

func userIDFromLocals(c *fiber.Ctx) *uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok && id > 0 {
			return &id
		}
	}
	return nil
}

func roleFromLocals(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// targetUserID reads the affected user from a `userId` path parameter, or
// from `id` on user routes. Other resources (procedures, notifications) use
// `id` for their own identifiers, which are not user references.
func targetUserID(c *fiber.Ctx) *uint {
	raw := c.Params("userId")
	if raw == "" && strings.Contains(c.Route().Path, "/users/") {
		raw = c.Params("id")
	}
	if raw == "" {
		return nil
	}

	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}

	id := uint(parsed)
	return &id
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket address.
func clientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Get("X-Real-IP")); real != "" {
		return real
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}

func headerOrUnknown(c *fiber.Ctx, key string) string {
	if value := strings.TrimSpace(c.Get(key)); value != "" {
		return value
	}
	return "unknown"
}

// topLevelBodyKeys extracts the key names of a JSON object body. Values are
// deliberately discarded so credentials and PII never reach the audit trail.
func topLevelBodyKeys(body []byte) []string {
	keys := make([]string, 0)
	if len(body) == 0 {
		return keys
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(body, &parsed); err != nil {
		return keys
	}

	for key := range parsed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
