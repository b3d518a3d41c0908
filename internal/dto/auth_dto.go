package dto

import (
	"time"

	"github.com/perscom/personnel-api/internal/models"
)

// SignupRequest registers a new personnel account. Accounts start pending
// and become usable only after an admin approves them.
type SignupRequest struct {
	ServiceNumber string `json:"service_number" validate:"required,min=3,max=32"`
	Name          string `json:"name" validate:"required,min=3,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8,max=128"`
	Rank          string `json:"rank" validate:"omitempty,max=64"`
	Unit          string `json:"unit" validate:"omitempty,max=128"`
}

// LoginRequest authenticates either a user (by service number) or an admin
// (by email). Exactly one of the two identifiers should be set.
type LoginRequest struct {
	ServiceNumber string `json:"service_number" validate:"omitempty,max=32"`
	Email         string `json:"email" validate:"omitempty,email"`
	Password      string `json:"password" validate:"required"`
}

// LoginResponse carries the signed token plus the authenticated principal.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Role      string        `json:"role"`
	User      *UserResponse `json:"user,omitempty"`
	Admin     *AdminInfo    `json:"admin,omitempty"`
}

// AdminInfo is the admin principal embedded in a login response.
type AdminInfo struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewAdminInfo converts an admin model to its response form.
func NewAdminInfo(model models.Admin) AdminInfo {
	return AdminInfo{
		ID:    model.ID,
		Name:  model.Name,
		Email: model.Email,
	}
}
