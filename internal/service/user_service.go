package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/perscom/personnel-api/internal/dto"
	"github.com/perscom/personnel-api/internal/repository"
)

// UserService covers self-service operations for authenticated personnel.
type UserService interface {
	GetProfile(ctx context.Context, id uint) (dto.UserResponse, error)
	UpdateProfile(ctx context.Context, id uint, payload dto.ProfileUpdateRequest) (dto.UserResponse, error)
	SetPhotoURL(ctx context.Context, id uint, url string) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user self-service layer.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) GetProfile(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uint, payload dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	updates := make(map[string]interface{})
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
	}
	if payload.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*payload.Email))
	}
	if payload.Rank != nil {
		updates["rank"] = strings.TrimSpace(*payload.Rank)
	}
	if payload.Unit != nil {
		updates["unit"] = strings.TrimSpace(*payload.Unit)
	}

	if len(updates) == 0 {
		return s.GetProfile(ctx, id)
	}

	user, err := s.users.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) SetPhotoURL(ctx context.Context, id uint, url string) (dto.UserResponse, error) {
	user, err := s.users.Update(ctx, id, map[string]interface{}{"photo_url": url})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}
