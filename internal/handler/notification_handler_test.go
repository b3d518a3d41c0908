package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/handler"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/service"
)

type mockNotificationService struct {
	feed          dto.NotificationFeedResponse
	feedErr       error
	lastRecipient models.Recipient
	lastLimit     int
	lastMarkedID  uint
	markReadErr   error
	markAllCount  int64
	sendCount     int
	sendErr       error
	lastSend      dto.NotificationSendRequest
}

func (m *mockNotificationService) Notify(context.Context, service.NewNotification) *models.Notification {
	return nil
}

func (m *mockNotificationService) Feed(_ context.Context, recipient models.Recipient, limit int) (dto.NotificationFeedResponse, error) {
	m.lastRecipient = recipient
	m.lastLimit = limit
	return m.feed, m.feedErr
}

func (m *mockNotificationService) UnreadCount(_ context.Context, recipient models.Recipient) (int64, error) {
	return m.feed.UnreadCount, nil
}

func (m *mockNotificationService) MarkRead(_ context.Context, id uint, recipient models.Recipient) (dto.NotificationResponse, error) {
	m.lastRecipient = recipient
	m.lastMarkedID = id
	if m.markReadErr != nil {
		return dto.NotificationResponse{}, m.markReadErr
	}
	return dto.NotificationResponse{ID: id, IsRead: true}, nil
}

func (m *mockNotificationService) MarkAllRead(_ context.Context, recipient models.Recipient) (int64, error) {
	m.lastRecipient = recipient
	return m.markAllCount, nil
}

func (m *mockNotificationService) Send(_ context.Context, payload dto.NotificationSendRequest) (int, error) {
	m.lastSend = payload
	return m.sendCount, m.sendErr
}

func (m *mockNotificationService) Start(context.Context) {}

func newNotificationApp(svc service.NotificationService, principalID uint) *fiber.App {
	app := fiber.New()
	authed := func(c *fiber.Ctx) error {
		c.Locals("user_id", principalID)
		return c.Next()
	}

	h := handler.NewNotificationHandler(svc, zerolog.New(io.Discard))
	h.RegisterUser(app.Group("/api/v1/notifications", authed))
	h.RegisterAdmin(app.Group("/api/v1/admin/notifications", authed))
	return app
}

func TestNotificationHandlerFeedUsesRecipientFromRouteGroup(t *testing.T) {
	svc := &mockNotificationService{feed: dto.NotificationFeedResponse{
		Notifications: []dto.NotificationResponse{{ID: 1, Title: "hello"}},
		UnreadCount:   4,
	}}
	app := newNotificationApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/?limit=10", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, models.UserRecipient(7), svc.lastRecipient)
	require.Equal(t, 10, svc.lastLimit)

	var response struct {
		Success bool                         `json:"success"`
		Data    dto.NotificationFeedResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.True(t, response.Success)
	require.Equal(t, int64(4), response.Data.UnreadCount)
	require.Len(t, response.Data.Notifications, 1)

	// The same handler on the admin group resolves an admin recipient.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, models.AdminRecipient(7), svc.lastRecipient)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &mockNotificationService{}
	app := newNotificationApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/v1/notifications/15/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(15), svc.lastMarkedID)
	require.Equal(t, models.UserRecipient(7), svc.lastRecipient)
}

func TestNotificationHandlerMarkReadNotFound(t *testing.T) {
	svc := &mockNotificationService{markReadErr: service.ErrNotificationNotFound}
	app := newNotificationApp(svc, 7)

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/v1/notifications/15/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	svc := &mockNotificationService{markAllCount: 3}
	app := newNotificationApp(svc, 9)

	resp, err := app.Test(httptest.NewRequest(http.MethodPut, "/api/v1/notifications/read-all", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, models.UserRecipient(9), svc.lastRecipient)

	var response struct {
		Data dto.MarkAllReadResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Equal(t, int64(3), response.Data.Count)
}

func TestNotificationHandlerSend(t *testing.T) {
	svc := &mockNotificationService{sendCount: 2}
	app := newNotificationApp(svc, 1)

	payload := dto.NotificationSendRequest{
		RecipientType: models.RecipientTypeUser,
		RecipientIDs:  []uint{4, 5},
		Type:          models.NotificationTypeMessage,
		Title:         "Formation",
		Message:       "Report at 0600.",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/notifications/send", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, payload.RecipientIDs, svc.lastSend.RecipientIDs)

	var response struct {
		Data dto.NotificationSendResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	require.Equal(t, 2, response.Data.Count)
}

func TestNotificationHandlerRequiresAuthenticatedPrincipal(t *testing.T) {
	svc := &mockNotificationService{}
	app := fiber.New()
	handler.NewNotificationHandler(svc, zerolog.New(io.Discard)).RegisterUser(app.Group("/api/v1/notifications"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
