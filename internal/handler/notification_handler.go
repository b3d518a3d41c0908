package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// NotificationHandler serves the polling feed and read-state transitions for
// both recipient kinds. The user/admin split is decided by which route group
// the handler is registered on, mirroring the static dispatch in the client.
type NotificationHandler struct {
	service service.NotificationService
	logger  zerolog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("component", "notification_handler").Logger(),
	}
}

// RegisterUser binds the personnel-facing notification routes.
func (h *NotificationHandler) RegisterUser(router fiber.Router) {
	router.Get("/", h.feed(models.UserRecipient))
	router.Put("/:id/read", h.markRead(models.UserRecipient))
	router.Put("/read-all", h.markAllRead(models.UserRecipient))
}

// RegisterAdmin binds the admin-facing notification routes, including the
// fan-out send endpoint. Middleware passed here runs on the send route only.
func (h *NotificationHandler) RegisterAdmin(router fiber.Router, sendMiddleware ...fiber.Handler) {
	router.Get("/", h.feed(models.AdminRecipient))
	router.Put("/:id/read", h.markRead(models.AdminRecipient))
	router.Put("/read-all", h.markAllRead(models.AdminRecipient))

	chain := make([]fiber.Handler, 0, len(sendMiddleware)+1)
	for _, mw := range sendMiddleware {
		if mw != nil {
			chain = append(chain, mw)
		}
	}
	router.Post("/send", append(chain, h.send)...)
}

func (h *NotificationHandler) feed(asRecipient func(uint) models.Recipient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := principalIDFromContext(c)
		if id == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		limit, err := parseQueryInt(c, "limit")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}

		feed, err := h.service.Feed(c.Context(), asRecipient(id), limit)
		if err != nil {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to load notification feed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load notifications")
		}

		return utils.SendSuccess(c, "notifications", feed)
	}
}

func (h *NotificationHandler) markRead(asRecipient func(uint) models.Recipient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principalID := principalIDFromContext(c)
		if principalID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
		}

		notification, err := h.service.MarkRead(c.Context(), id, asRecipient(principalID))
		if err != nil {
			if errors.Is(err, service.ErrNotificationNotFound) {
				return utils.SendError(c, fiber.StatusNotFound, "notification not found")
			}
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to mark notification read")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update notification")
		}

		return utils.SendSuccess(c, "notification updated", notification)
	}
}

func (h *NotificationHandler) markAllRead(asRecipient func(uint) models.Recipient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principalID := principalIDFromContext(c)
		if principalID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		count, err := h.service.MarkAllRead(c.Context(), asRecipient(principalID))
		if err != nil {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to mark all notifications read")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update notifications")
		}

		return utils.SendSuccess(c, "notifications updated", dto.MarkAllReadResponse{Count: count})
	}
}

func (h *NotificationHandler) send(c *fiber.Ctx) error {
	var payload dto.NotificationSendRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	count, err := h.service.Send(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to send notifications")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to send notifications")
	}

	return utils.SendSuccess(c, "notifications sent", dto.NotificationSendResponse{Count: count})
}
