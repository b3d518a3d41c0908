package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/service"
	"github.com/perscom/personnel-api/internal/utils"
)

// AuthHandler wires registration and login endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Routes exposes the public auth routes for registration by the router.
func (h *AuthHandler) Routes() []RouteSpec {
	return []RouteSpec{
		{Method: fiber.MethodPost, Path: "/signup", Handler: h.signup},
		{Method: fiber.MethodPost, Path: "/login", Handler: h.login},
	}
}

// LogoutRoute exposes the authenticated logout route. Logout has no server
// state to clear beyond the audit trail entry its middleware records.
func (h *AuthHandler) LogoutRoute() RouteSpec {
	return RouteSpec{Method: fiber.MethodPost, Path: "/logout", Handler: h.logout}
}

func (h *AuthHandler) signup(c *fiber.Ctx) error {
	var payload dto.SignupRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Signup(c.Context(), payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		if errors.Is(err, service.ErrDuplicateAccount) {
			return utils.SendError(c, fiber.StatusConflict, "account already exists")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("signup failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "signup failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration submitted", user)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Login(c.Context(), payload, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountLocked):
			return utils.SendError(c, fiber.StatusLocked, "account is locked")
		case errors.Is(err, service.ErrAccountNotActive):
			return utils.SendError(c, fiber.StatusForbidden, "account is not active")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	// Tokens are stateless; the client discards its copy.
	return utils.SendSuccess(c, "logged out", nil)
}
