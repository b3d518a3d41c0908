package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// ActivityHandler serves the audit trail to administrators.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register mounts the activity routes on an admin-scoped group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	req := dto.ActivityListRequest{
		Page:      page,
		PageSize:  pageSize,
		ActorType: c.Query("actor_type"),
		Action:    c.Query("action"),
	}
	target, err := parseQueryInt(c, "target_user_id")
	if err != nil || target < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid target_user_id")
	}
	req.TargetUserID = uint(target)

	result, err := h.service.List(c.Context(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activity")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activity")
	}

	return utils.SendSuccess(c, "activity retrieved", result)
}
