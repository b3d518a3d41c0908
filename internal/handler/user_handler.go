package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// UserHandler wires self-service profile endpoints.
type UserHandler struct {
	users      service.UserService
	procedures service.ProcedureService
	uploads    service.UploadService
	logger     zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(users service.UserService, procedures service.ProcedureService, uploads service.UploadService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:      users,
		procedures: procedures,
		uploads:    uploads,
		logger:     logger.With().Str("component", "user_handler").Logger(),
	}
}

// ProfileRoutes exposes the user routes for registration by the router.
func (h *UserHandler) ProfileRoutes() []RouteSpec {
	return []RouteSpec{
		{Method: fiber.MethodGet, Path: "/me", Handler: h.profile},
		{Method: fiber.MethodPut, Path: "/me", Handler: h.updateProfile},
		{Method: fiber.MethodGet, Path: "/me/procedures", Handler: h.myProcedures},
		{Method: fiber.MethodPost, Path: "/me/photo", Handler: h.uploadPhoto},
	}
}

func (h *UserHandler) profile(c *fiber.Ctx) error {
	id := principalIDFromContext(c)
	if id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	user, err := h.users.GetProfile(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	id := principalIDFromContext(c)
	if id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.users.UpdateProfile(c.Context(), id, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to update profile")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update profile")
		}
	}

	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) myProcedures(c *fiber.Ctx) error {
	id := principalIDFromContext(c)
	if id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	assignments, err := h.procedures.ListForUser(c.Context(), id)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list assignments")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list assignments")
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *UserHandler) uploadPhoto(c *fiber.Ctx) error {
	id := principalIDFromContext(c)
	if id == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "photo file is required")
	}

	url, err := h.uploads.UploadPhoto(c.Context(), file, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "photo exceeds size limit")
		case errors.Is(err, service.ErrUploadTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, "photo type not allowed")
		case errors.Is(err, service.ErrUploadsDisabled):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "photo uploads are disabled")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to upload photo")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to upload photo")
		}
	}

	return utils.SendSuccess(c, "photo uploaded", fiber.Map{"photo_url": url})
}
