package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/models"
	"github.com/perscom/personnel-api/internal/repository"
)

// ErrProcedureNotFound indicates the procedure does not exist.
var ErrProcedureNotFound = errors.New("procedure not found")

// ProcedureService manages procedures and their assignment to personnel.
type ProcedureService interface {
	Create(ctx context.Context, payload dto.ProcedureCreateRequest) (dto.ProcedureResponse, error)
	Get(ctx context.Context, id uint) (dto.ProcedureResponse, error)
	List(ctx context.Context, filter repository.ProcedureFilter) ([]dto.ProcedureResponse, dto.PaginationMeta, error)
	Update(ctx context.Context, id uint, payload dto.ProcedureUpdateRequest) (dto.ProcedureResponse, error)
	Delete(ctx context.Context, id uint) error
	Assign(ctx context.Context, id uint, payload dto.ProcedureAssignRequest, assignedBy uint) ([]dto.AssignmentResponse, error)
	ListForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error)
}

type procedureService struct {
	procedures    repository.ProcedureRepository
	notifications NotificationService
	validator     *validator.Validate
	logger        zerolog.Logger
}

// NewProcedureService constructs the procedure service.
func NewProcedureService(procedures repository.ProcedureRepository, notifications NotificationService, validate *validator.Validate, logger zerolog.Logger) ProcedureService {
	return &procedureService{
		procedures:    procedures,
		notifications: notifications,
		validator:     validate,
		logger:        logger.With().Str("component", "procedure_service").Logger(),
	}
}

func (s *procedureService) Create(ctx context.Context, payload dto.ProcedureCreateRequest) (dto.ProcedureResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProcedureResponse{}, err
	}

	procedure := models.Procedure{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Category:    strings.TrimSpace(payload.Category),
		Status:      models.ProcedureStatusActive,
	}

	if err := s.procedures.Create(ctx, &procedure); err != nil {
		return dto.ProcedureResponse{}, err
	}

	return dto.NewProcedureResponse(procedure), nil
}

func (s *procedureService) Get(ctx context.Context, id uint) (dto.ProcedureResponse, error) {
	procedure, err := s.procedures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProcedureResponse{}, ErrProcedureNotFound
		}
		return dto.ProcedureResponse{}, err
	}
	return dto.NewProcedureResponse(procedure), nil
}

func (s *procedureService) List(ctx context.Context, filter repository.ProcedureFilter) ([]dto.ProcedureResponse, dto.PaginationMeta, error) {
	procedures, total, err := s.procedures.List(ctx, filter)
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(filter.Page, 1),
		PageSize:   filter.PageSize,
		TotalItems: total,
	}
	if filter.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(filter.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.NewProcedureResponseSlice(procedures), pagination, nil
}

// Update persists the change and notifies every user currently assigned to
// the procedure. Notification failures never fail the update.
func (s *procedureService) Update(ctx context.Context, id uint, payload dto.ProcedureUpdateRequest) (dto.ProcedureResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProcedureResponse{}, err
	}

	updates := make(map[string]interface{})
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		updates["description"] = strings.TrimSpace(*payload.Description)
	}
	if payload.Category != nil {
		updates["category"] = strings.TrimSpace(*payload.Category)
	}
	if payload.Status != nil {
		updates["status"] = *payload.Status
	}

	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	procedure, err := s.procedures.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProcedureResponse{}, ErrProcedureNotFound
		}
		return dto.ProcedureResponse{}, err
	}

	userIDs, err := s.procedures.ListAssignedUserIDs(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Uint("procedure_id", id).Msg("failed to list assignees for update notification")
		return dto.NewProcedureResponse(procedure), nil
	}

	for _, userID := range userIDs {
		s.notifications.Notify(ctx, NewNotification{
			Recipient: models.UserRecipient(userID),
			Type:      models.NotificationTypeProcedureUpdated,
			Title:     "Procedure updated",
			Message:   fmt.Sprintf("The procedure %q was updated.", procedure.Name),
			ActionURL: fmt.Sprintf("/procedures/%d", procedure.ID),
		})
	}

	return dto.NewProcedureResponse(procedure), nil
}

func (s *procedureService) Delete(ctx context.Context, id uint) error {
	if err := s.procedures.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProcedureNotFound
		}
		return err
	}
	return nil
}

func (s *procedureService) Assign(ctx context.Context, id uint, payload dto.ProcedureAssignRequest, assignedBy uint) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	procedure, err := s.procedures.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProcedureNotFound
		}
		return nil, err
	}

	assignments := make([]dto.AssignmentResponse, 0, len(payload.UserIDs))
	for _, userID := range payload.UserIDs {
		assignment := models.ProcedureAssignment{
			ProcedureID: procedure.ID,
			UserID:      userID,
			AssignedBy:  assignedBy,
			DueDate:     payload.DueDate,
			Status:      models.AssignmentStatusPending,
		}
		if err := s.procedures.Assign(ctx, &assignment); err != nil {
			s.logger.Error().Err(err).Uint("user_id", userID).Uint("procedure_id", procedure.ID).Msg("failed to create assignment")
			continue
		}

		s.notifications.Notify(ctx, NewNotification{
			Recipient: models.UserRecipient(userID),
			Type:      models.NotificationTypeProcedureAssigned,
			Title:     "Procedure assigned",
			Message:   fmt.Sprintf("You were assigned the procedure %q.", procedure.Name),
			Priority:  models.PriorityHigh,
			ActionURL: fmt.Sprintf("/procedures/%d", procedure.ID),
		})

		assignments = append(assignments, dto.NewAssignmentResponse(assignment))
	}

	return assignments, nil
}

func (s *procedureService) ListForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error) {
	assignments, err := s.procedures.ListAssignmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponseSlice(assignments), nil
}
