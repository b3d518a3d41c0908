package dto

import (
	"time"

	"github.com/perscom/personnel-api/internal/models"
)

// UserResponse represents personnel data returned to clients. The password
// hash and lockout counters never leave the persistence layer.
type UserResponse struct {
	ID            uint      `json:"id"`
	ServiceNumber string    `json:"service_number"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Rank          string    `json:"rank,omitempty"`
	Unit          string    `json:"unit,omitempty"`
	Status        string    `json:"status"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewUserResponse converts a user model to a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:            model.ID,
		ServiceNumber: model.ServiceNumber,
		Name:          model.Name,
		Email:         model.Email,
		Rank:          model.Rank,
		Unit:          model.Unit,
		Status:        model.Status,
		PhotoURL:      model.PhotoURL,
		CreatedAt:     model.CreatedAt,
	}
}

// NewUserResponseSlice converts a slice of user models to DTOs.
func NewUserResponseSlice(items []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewUserResponse(item))
	}
	return out
}

// ProfileUpdateRequest updates the caller's own profile. Nil fields are left
// untouched.
type ProfileUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=3,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
	Rank  *string `json:"rank" validate:"omitempty,max=64"`
	Unit  *string `json:"unit" validate:"omitempty,max=128"`
}
