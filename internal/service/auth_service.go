package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/audit"
	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

// Auth failure sentinels.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotActive   = errors.New("account is not active")
	ErrAccountLocked      = errors.New("account is locked")
	ErrDuplicateAccount   = errors.New("account already exists")
)

const failedLoginThreshold = 5

// AuthService handles registration, login and token issuance.
type AuthService interface {
	Signup(ctx context.Context, payload dto.SignupRequest) (dto.UserResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest, ip, userAgent string) (dto.LoginResponse, error)
}

type authService struct {
	users         repository.UserRepository
	admins        repository.AdminRepository
	notifications NotificationService
	recorder      audit.Recorder
	validator     *validator.Validate
	jwtSecret     string
	tokenTTL      time.Duration
	lockDuration  time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(
	users repository.UserRepository,
	admins repository.AdminRepository,
	notifications NotificationService,
	recorder audit.Recorder,
	validate *validator.Validate,
	jwtSecret string,
	tokenTTL time.Duration,
	lockDuration time.Duration,
	logger zerolog.Logger,
) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if lockDuration <= 0 {
		lockDuration = 30 * time.Minute
	}

	return &authService{
		users:         users,
		admins:        admins,
		notifications: notifications,
		recorder:      recorder,
		validator:     validate,
		jwtSecret:     jwtSecret,
		tokenTTL:      tokenTTL,
		lockDuration:  lockDuration,
		logger:        logger.With().Str("component", "auth_service").Logger(),
		now:           time.Now,
	}
}

// Signup registers a pending personnel account and notifies every admin
// that a registration is waiting for review. Notification failures do not
// fail the signup.
func (s *authService) Signup(ctx context.Context, payload dto.SignupRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	serviceNumber := strings.ToUpper(strings.TrimSpace(payload.ServiceNumber))
	if _, err := s.users.GetByServiceNumber(ctx, serviceNumber); err == nil {
		return dto.UserResponse{}, ErrDuplicateAccount
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ServiceNumber: serviceNumber,
		Name:          strings.TrimSpace(payload.Name),
		Email:         strings.ToLower(strings.TrimSpace(payload.Email)),
		Rank:          strings.TrimSpace(payload.Rank),
		Unit:          strings.TrimSpace(payload.Unit),
		PasswordHash:  string(hash),
		Status:        models.UserStatusPending,
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.notifyAdmins(ctx, user)

	return dto.NewUserResponse(user), nil
}

func (s *authService) notifyAdmins(ctx context.Context, user models.User) {
	admins, err := s.admins.ListAll(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list admins for signup notification")
		return
	}

	for _, admin := range admins {
		s.notifications.Notify(ctx, NewNotification{
			Recipient: models.AdminRecipient(admin.ID),
			Type:      models.NotificationTypeInfo,
			Title:     "New registration pending",
			Message:   fmt.Sprintf("%s (%s) registered and awaits approval", user.Name, user.ServiceNumber),
			Priority:  models.PriorityHigh,
			ActionURL: fmt.Sprintf("/admin/users/%d", user.ID),
		})
	}
}

// Login authenticates a user by service number or an admin by email. Failed
// attempts and lockouts are recorded directly because the audit middleware
// only captures successful responses.
func (s *authService) Login(ctx context.Context, payload dto.LoginRequest, ip, userAgent string) (dto.LoginResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LoginResponse{}, err
	}

	if strings.TrimSpace(payload.ServiceNumber) != "" {
		return s.loginUser(ctx, payload, ip, userAgent)
	}
	if strings.TrimSpace(payload.Email) != "" {
		return s.loginAdmin(ctx, payload, ip, userAgent)
	}
	return dto.LoginResponse{}, ErrInvalidCredentials
}

func (s *authService) loginUser(ctx context.Context, payload dto.LoginRequest, ip, userAgent string) (dto.LoginResponse, error) {
	serviceNumber := strings.ToUpper(strings.TrimSpace(payload.ServiceNumber))

	user, err := s.users.GetByServiceNumber(ctx, serviceNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailedLogin(nil, serviceNumber, ip, userAgent)
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if user.Status == models.UserStatusLocked {
		if user.LockedUntil != nil && s.now().Before(*user.LockedUntil) {
			return dto.LoginResponse{}, ErrAccountLocked
		}
		// Lock window elapsed; reopen the account before checking the password.
		if _, err := s.users.Update(ctx, user.ID, map[string]interface{}{
			"status":        models.UserStatusActive,
			"failed_logins": 0,
			"locked_until":  nil,
		}); err != nil {
			return dto.LoginResponse{}, err
		}
		user.Status = models.UserStatusActive
		user.FailedLogins = 0
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)) != nil {
		s.handleFailedAttempt(ctx, user, ip, userAgent)
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		return dto.LoginResponse{}, ErrAccountNotActive
	}

	if user.FailedLogins > 0 {
		if _, err := s.users.Update(ctx, user.ID, map[string]interface{}{"failed_logins": 0}); err != nil {
			s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to reset login counter")
		}
	}

	token, expiresAt, err := s.issueToken(user.ID, "user")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	response := dto.NewUserResponse(user)
	return dto.LoginResponse{Token: token, ExpiresAt: expiresAt, Role: "user", User: &response}, nil
}

func (s *authService) loginAdmin(ctx context.Context, payload dto.LoginRequest, ip, userAgent string) (dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))

	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailedLogin(nil, email, ip, userAgent)
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(payload.Password)) != nil {
		s.recordFailedLogin(nil, email, ip, userAgent)
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.issueToken(admin.ID, "admin")
	if err != nil {
		return dto.LoginResponse{}, err
	}

	info := dto.NewAdminInfo(admin)
	return dto.LoginResponse{Token: token, ExpiresAt: expiresAt, Role: "admin", Admin: &info}, nil
}

func (s *authService) handleFailedAttempt(ctx context.Context, user models.User, ip, userAgent string) {
	attempts := user.FailedLogins + 1
	updates := map[string]interface{}{"failed_logins": attempts}

	locked := attempts >= failedLoginThreshold
	if locked {
		lockedUntil := s.now().Add(s.lockDuration)
		updates["status"] = models.UserStatusLocked
		updates["locked_until"] = lockedUntil
	}

	if _, err := s.users.Update(ctx, user.ID, updates); err != nil {
		s.logger.Error().Err(err).Uint("user_id", user.ID).Msg("failed to update login counters")
	}

	s.recordFailedLogin(&user.ID, user.ServiceNumber, ip, userAgent)

	if locked {
		s.recorder.Record(audit.Entry{
			ActorType:    models.ActorTypeSystem,
			Action:       models.ActionAccountLocked,
			Description:  fmt.Sprintf("account %s locked after %d failed login attempts", user.ServiceNumber, attempts),
			TargetUserID: &user.ID,
			IPAddress:    orUnknown(ip),
			UserAgent:    orUnknown(userAgent),
			Metadata:     map[string]interface{}{"attempts": attempts},
		})
		s.notifications.Notify(ctx, NewNotification{
			Recipient: models.UserRecipient(user.ID),
			Type:      models.NotificationTypeWarning,
			Title:     "Account locked",
			Message:   "Your account was locked after repeated failed login attempts.",
			Priority:  models.PriorityUrgent,
		})
	}
}

func (s *authService) recordFailedLogin(targetUserID *uint, principal, ip, userAgent string) {
	s.recorder.Record(audit.Entry{
		ActorType:    models.ActorTypeSystem,
		Action:       models.ActionFailedLogin,
		Description:  fmt.Sprintf("failed login attempt for %s", principal),
		TargetUserID: targetUserID,
		IPAddress:    orUnknown(ip),
		UserAgent:    orUnknown(userAgent),
		Metadata:     map[string]interface{}{"principal": principal},
	})
}

func (s *authService) issueToken(id uint, role string) (string, time.Time, error) {
	expiresAt := s.now().Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", id),
		"role": role,
		"iat":  s.now().Unix(),
		"exp":  expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, expiresAt, nil
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
