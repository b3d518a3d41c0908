package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

// Admin service sentinels.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidImport  = errors.New("import payload failed schema validation")
	ErrUserNotPending = errors.New("user is not pending review")
)

// importSchema guards bulk imports: structure errors are rejected before a
// single record is written.
const importSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["users"],
	"properties": {
		"users": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["service_number", "name", "email"],
				"properties": {
					"service_number": {"type": "string", "pattern": "^NSS-[0-9]{6}$"},
					"name": {"type": "string", "minLength": 3},
					"email": {"type": "string", "format": "email"},
					"rank": {"type": "string"},
					"unit": {"type": "string"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

// AdminService orchestrates the approval workflow and user administration.
type AdminService interface {
	ListUsers(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error)
	GetUser(ctx context.Context, id uint) (dto.UserResponse, error)
	ApproveUser(ctx context.Context, id uint) (dto.UserResponse, error)
	RejectUser(ctx context.Context, id uint, reason string) (dto.UserResponse, error)
	DeleteUser(ctx context.Context, id uint) error
	ChangeStatus(ctx context.Context, id uint, payload dto.StatusChangeRequest) (dto.UserResponse, error)
	ExportUsers(ctx context.Context) ([]dto.UserResponse, error)
	ImportUsers(ctx context.Context, raw []byte) (dto.ImportUsersResponse, error)
}

type adminService struct {
	users         repository.UserRepository
	notifications NotificationService
	validator     *validator.Validate
	schema        *jsonschema.Schema
	logger        zerolog.Logger
}

// NewAdminService constructs the admin service. The import schema is
// compiled once at startup; a broken schema is a programming error.
func NewAdminService(users repository.UserRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) AdminService {
	compiler := jsonschema.NewCompiler()
	// Draft 2020-12 treats "format" as annotation-only unless assertions
	// are switched on; without this, "format": "email" never rejects.
	compiler.AssertFormat = true
	if err := compiler.AddResource("import.schema.json", strings.NewReader(importSchema)); err != nil {
		panic(fmt.Sprintf("invalid import schema resource: %v", err))
	}
	schema := compiler.MustCompile("import.schema.json")

	return &adminService{
		users:         users,
		notifications: notifications,
		validator:     validate,
		schema:        schema,
		logger:        logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) ListUsers(ctx context.Context, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	filter := repository.UserFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   strings.TrimSpace(req.Search),
		Status:   strings.TrimSpace(req.Status),
		Unit:     strings.TrimSpace(req.Unit),
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AdminUserListResponse{Items: dto.NewUserResponseSlice(users), Pagination: pagination}, nil
}

func (s *adminService) GetUser(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// ApproveUser activates a pending account and notifies the user. The
// notification is best-effort: approval succeeds even when it cannot be
// persisted.
func (s *adminService) ApproveUser(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	if user.Status != models.UserStatusPending {
		return dto.UserResponse{}, ErrUserNotPending
	}

	user, err = s.users.Update(ctx, id, map[string]interface{}{"status": models.UserStatusActive})
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.notifications.Notify(ctx, NewNotification{
		Recipient: models.UserRecipient(user.ID),
		Type:      models.NotificationTypeApproval,
		Title:     "Registration approved",
		Message:   fmt.Sprintf("Welcome %s, your registration was approved.", user.Name),
		Priority:  models.PriorityHigh,
		ActionURL: "/dashboard",
	})

	return dto.NewUserResponse(user), nil
}

func (s *adminService) RejectUser(ctx context.Context, id uint, reason string) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	if user.Status != models.UserStatusPending {
		return dto.UserResponse{}, ErrUserNotPending
	}

	user, err = s.users.Update(ctx, id, map[string]interface{}{"status": models.UserStatusRejected})
	if err != nil {
		return dto.UserResponse{}, err
	}

	message := "Your registration was rejected."
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("Your registration was rejected: %s", reason)
	}

	s.notifications.Notify(ctx, NewNotification{
		Recipient: models.UserRecipient(user.ID),
		Type:      models.NotificationTypeRejection,
		Title:     "Registration rejected",
		Message:   message,
		Priority:  models.PriorityHigh,
	})

	return dto.NewUserResponse(user), nil
}

func (s *adminService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *adminService) ChangeStatus(ctx context.Context, id uint, payload dto.StatusChangeRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{"status": payload.Status}
	if payload.Status != models.UserStatusLocked {
		updates["failed_logins"] = 0
		updates["locked_until"] = nil
	}

	user, err := s.users.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	message := fmt.Sprintf("Your account status changed to %s.", payload.Status)
	if reason := strings.TrimSpace(payload.Reason); reason != "" {
		message = fmt.Sprintf("%s Reason: %s", message, reason)
	}

	s.notifications.Notify(ctx, NewNotification{
		Recipient: models.UserRecipient(user.ID),
		Type:      models.NotificationTypeStatusChanged,
		Title:     "Account status changed",
		Message:   message,
	})

	return dto.NewUserResponse(user), nil
}

func (s *adminService) ExportUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(users), nil
}

// ImportUsers validates the raw payload against the import schema and
// creates the records that do not already exist. Imported accounts start
// active with a placeholder credential that forces a reset on first login.
func (s *adminService) ImportUsers(ctx context.Context, raw []byte) (dto.ImportUsersResponse, error) {
	var decoded interface{}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&decoded); err != nil {
		return dto.ImportUsersResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	if err := s.schema.Validate(decoded); err != nil {
		return dto.ImportUsersResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	var payload dto.ImportUsersRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return dto.ImportUsersResponse{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	response := dto.ImportUsersResponse{}
	for _, record := range payload.Users {
		serviceNumber := strings.ToUpper(strings.TrimSpace(record.ServiceNumber))
		if _, err := s.users.GetByServiceNumber(ctx, serviceNumber); err == nil {
			response.Skipped++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return response, err
		}

		user := models.User{
			ServiceNumber: serviceNumber,
			Name:          strings.TrimSpace(record.Name),
			Email:         strings.ToLower(strings.TrimSpace(record.Email)),
			Rank:          strings.TrimSpace(record.Rank),
			Unit:          strings.TrimSpace(record.Unit),
			PasswordHash:  "!imported",
			Status:        models.UserStatusActive,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			s.logger.Warn().Err(err).Str("service_number", serviceNumber).Msg("import record failed")
			response.Skipped++
			continue
		}
		response.Created++
	}

	return response, nil
}
