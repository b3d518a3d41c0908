package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/repository"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// ProcedureHandler wires procedure administration endpoints.
type ProcedureHandler struct {
	service service.ProcedureService
	logger  zerolog.Logger
}

// NewProcedureHandler constructs the handler.
func NewProcedureHandler(service service.ProcedureService, logger zerolog.Logger) *ProcedureHandler {
	return &ProcedureHandler{
		service: service,
		logger:  logger.With().Str("component", "procedure_handler").Logger(),
	}
}

// Routes exposes the procedure routes for registration by the router.
func (h *ProcedureHandler) Routes() []RouteSpec {
	return []RouteSpec{
		{Method: fiber.MethodGet, Path: "/", Handler: h.list},
		{Method: fiber.MethodGet, Path: "/:id", Handler: h.get},
		{Method: fiber.MethodPost, Path: "/", Handler: h.create},
		{Method: fiber.MethodPut, Path: "/:id", Handler: h.update},
		{Method: fiber.MethodDelete, Path: "/:id", Handler: h.delete},
		{Method: fiber.MethodPost, Path: "/:id/assign", Handler: h.assign},
	}
}

func (h *ProcedureHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	filter := repository.ProcedureFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}

	items, pagination, err := h.service.List(c.Context(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list procedures")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list procedures")
	}

	return utils.SendSuccess(c, "procedures retrieved", fiber.Map{"items": items, "pagination": pagination})
}

func (h *ProcedureHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	procedure, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProcedureNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "procedure not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to fetch procedure")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to fetch procedure")
	}

	return utils.SendSuccess(c, "procedure retrieved", procedure)
}

func (h *ProcedureHandler) create(c *fiber.Ctx) error {
	var payload dto.ProcedureCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	procedure, err := h.service.Create(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create procedure")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create procedure")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "procedure created", procedure)
}

func (h *ProcedureHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ProcedureUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	procedure, err := h.service.Update(c.Context(), id, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProcedureNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "procedure not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to update procedure")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update procedure")
		}
	}

	return utils.SendSuccess(c, "procedure updated", procedure)
}

func (h *ProcedureHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrProcedureNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "procedure not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete procedure")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete procedure")
	}

	return utils.SendSuccess(c, "procedure deleted", nil)
}

func (h *ProcedureHandler) assign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.ProcedureAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignments, err := h.service.Assign(c.Context(), id, payload, principalIDFromContext(c))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrProcedureNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "procedure not found")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to assign procedure")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to assign procedure")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "procedure assigned", assignments)
}
