package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// AdminHandler wires user administration endpoints.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RouteSpec describes one admin route plus its audit configuration, so the
// router can wrap each mutation with the right recorder settings.
type RouteSpec struct {
	Method  string
	Path    string
	Handler fiber.Handler
}

// Routes exposes the admin user routes for registration by the router.
func (h *AdminHandler) Routes() []RouteSpec {
	return []RouteSpec{
		{Method: fiber.MethodGet, Path: "/users", Handler: h.listUsers},
		{Method: fiber.MethodGet, Path: "/users/:id", Handler: h.getUser},
		{Method: fiber.MethodPut, Path: "/users/:id/approve", Handler: h.approveUser},
		{Method: fiber.MethodPut, Path: "/users/:id/reject", Handler: h.rejectUser},
		{Method: fiber.MethodPut, Path: "/users/:id/status", Handler: h.changeStatus},
		{Method: fiber.MethodDelete, Path: "/users/:id", Handler: h.deleteUser},
		{Method: fiber.MethodGet, Path: "/users-export", Handler: h.exportUsers},
		{Method: fiber.MethodPost, Path: "/users-import", Handler: h.importUsers},
	}
}

func (h *AdminHandler) listUsers(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	req := dto.AdminUserListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Unit:     c.Query("unit"),
	}

	response, err := h.service.ListUsers(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return utils.SendSuccess(c, "users retrieved", response)
}

func (h *AdminHandler) getUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	user, err := h.service.GetUser(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch user")
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *AdminHandler) approveUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	user, err := h.service.ApproveUser(c.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUserNotPending):
			return utils.SendError(c, fiber.StatusConflict, "user is not pending review")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to approve user")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to approve user")
		}
	}

	return utils.SendSuccess(c, "user approved", user)
}

func (h *AdminHandler) rejectUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RejectUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	user, err := h.service.RejectUser(c.Context(), id, payload.Reason)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		case errors.Is(err, service.ErrUserNotPending):
			return utils.SendError(c, fiber.StatusConflict, "user is not pending review")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to reject user")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to reject user")
		}
	}

	return utils.SendSuccess(c, "user rejected", user)
}

func (h *AdminHandler) changeStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.StatusChangeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.ChangeStatus(c.Context(), id, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUserNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to change user status")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to change status")
		}
	}

	return utils.SendSuccess(c, "status updated", user)
}

func (h *AdminHandler) deleteUser(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.DeleteUser(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete user")
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *AdminHandler) exportUsers(c *fiber.Ctx) error {
	users, err := h.service.ExportUsers(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to export users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to export users")
	}

	return utils.SendSuccess(c, "users exported", users)
}

func (h *AdminHandler) importUsers(c *fiber.Ctx) error {
	result, err := h.service.ImportUsers(c.Context(), c.Body())
	if err != nil {
		if errors.Is(err, service.ErrInvalidImport) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to import users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to import users")
	}

	return utils.SendSuccess(c, "users imported", result)
}
