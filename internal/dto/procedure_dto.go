package dto

import (
	"time"

	"github.com/perscom/personnel-api/internal/models"
)

// ProcedureCreateRequest is the payload to create a procedure.
type ProcedureCreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=4000"`
	Category    string `json:"category" validate:"omitempty,max=64"`
}

// ProcedureUpdateRequest captures partial procedure updates.
type ProcedureUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string `json:"description" validate:"omitempty,max=4000"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ProcedureAssignRequest assigns a procedure to one or more users.
type ProcedureAssignRequest struct {
	UserIDs []uint     `json:"user_ids" validate:"required,min=1,dive,min=1"`
	DueDate *time.Time `json:"due_date"`
}

// ProcedureResponse is the serialized representation of a procedure.
type ProcedureResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProcedureResponse converts a procedure model into a DTO.
func NewProcedureResponse(p models.Procedure) ProcedureResponse {
	return ProcedureResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProcedureResponseSlice converts a slice of procedures into DTOs.
func NewProcedureResponseSlice(items []models.Procedure) []ProcedureResponse {
	out := make([]ProcedureResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewProcedureResponse(item))
	}
	return out
}

// AssignmentResponse serializes a procedure assignment.
type AssignmentResponse struct {
	ID          uint               `json:"id"`
	ProcedureID uint               `json:"procedure_id"`
	UserID      uint               `json:"user_id"`
	AssignedBy  uint               `json:"assigned_by"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	Procedure   *ProcedureResponse `json:"procedure,omitempty"`
}

// NewAssignmentResponse converts an assignment model into a DTO.
func NewAssignmentResponse(a models.ProcedureAssignment) AssignmentResponse {
	response := AssignmentResponse{
		ID:          a.ID,
		ProcedureID: a.ProcedureID,
		UserID:      a.UserID,
		AssignedBy:  a.AssignedBy,
		DueDate:     a.DueDate,
		Status:      a.Status,
		CreatedAt:   a.CreatedAt,
	}
	if a.Procedure != nil {
		procedure := NewProcedureResponse(*a.Procedure)
		response.Procedure = &procedure
	}
	return response
}

// NewAssignmentResponseSlice converts assignment models into DTOs.
func NewAssignmentResponseSlice(items []models.ProcedureAssignment) []AssignmentResponse {
	out := make([]AssignmentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewAssignmentResponse(item))
	}
	return out
}
