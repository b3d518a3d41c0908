package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/middleware"
	"github.com/perscom/personnel-api/internal/models"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *captureRecorder) Record(entry audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *captureRecorder) recorded() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func TestAuditRecordsBodyKeyNamesOnly(t *testing.T) {
	recorder := &captureRecorder{}
	app := fiber.New()
	app.Post("/api/v1/auth/login",
		middleware.Audit(recorder, models.ActionLogin, middleware.Static("Logged in")),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"success": true})
		},
	)

	body := []byte(`{"service_number":"NSS-000001","password":"hunter2-secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "audit-test")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := recorder.recorded()
	require.Len(t, entries, 1)

	entry := entries[0]
	require.Equal(t, models.ActionLogin, entry.Action)
	require.Equal(t, "Logged in", entry.Description)
	require.Equal(t, "203.0.113.9", entry.IPAddress)
	require.Equal(t, "audit-test", entry.UserAgent)
	require.Equal(t, "POST", entry.Metadata["method"])
	require.Equal(t, "/api/v1/auth/login", entry.Metadata["path"])

	keys, ok := entry.Metadata["body"].([]string)
	require.True(t, ok)
	require.Equal(t, []string{"password", "service_number"}, keys)

	// The credential value must not appear anywhere in the entry.
	serialized, err := json.Marshal(entry)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(serialized), "hunter2-secret"))
}

func TestAuditSkipsFailedRequests(t *testing.T) {
	recorder := &captureRecorder{}
	app := fiber.New()
	app.Post("/login",
		middleware.Audit(recorder, models.ActionLogin, nil),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false})
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"x"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, recorder.recorded())
}

func TestAuditDerivesActorAndTarget(t *testing.T) {
	recorder := &captureRecorder{}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		c.Locals("user_role", "admin")
		return c.Next()
	})
	app.Put("/users/:id/approve",
		middleware.Audit(recorder, models.ActionUserApproved, nil),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"success": true})
		},
	)

	req := httptest.NewRequest(http.MethodPut, "/users/42/approve", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := recorder.recorded()
	require.Len(t, entries, 1)

	entry := entries[0]
	require.Equal(t, models.ActorTypeAdmin, entry.ActorType)
	require.Nil(t, entry.UserID)
	require.NotNil(t, entry.AdminID)
	require.Equal(t, uint(3), *entry.AdminID)
	require.NotNil(t, entry.TargetUserID)
	require.Equal(t, uint(42), *entry.TargetUserID)
}

func TestAuditFallsBackToSystemActor(t *testing.T) {
	recorder := &captureRecorder{}
	app := fiber.New()
	app.Post("/signup",
		middleware.Audit(recorder, models.ActionSignup, nil),
		func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true})
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"name":"A"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	entries := recorder.recorded()
	require.Len(t, entries, 1)
	require.Equal(t, models.ActorTypeSystem, entries[0].ActorType)
	require.Nil(t, entries[0].UserID)
	require.Nil(t, entries[0].AdminID)
}

func TestAuditIgnoresNonObjectBodies(t *testing.T) {
	recorder := &captureRecorder{}
	app := fiber.New()
	app.Post("/import",
		middleware.Audit(recorder, models.ActionDataImport, nil),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"success": true})
		},
	)

	req := httptest.NewRequest(http.MethodPost, "/import", strings.NewReader(`[1,2,3]`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	entries := recorder.recorded()
	require.Len(t, entries, 1)
	keys, ok := entries[0].Metadata["body"].([]string)
	require.True(t, ok)
	require.Empty(t, keys)
}
