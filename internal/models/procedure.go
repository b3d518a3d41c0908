package models

import "time"

// Procedure status values.
const (
	ProcedureStatusActive   = "active"
	ProcedureStatusInactive = "inactive"
)

// Assignment status values.
const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusCompleted = "completed"
	AssignmentStatusOverdue   = "overdue"
)

// Procedure is an administrative procedure that can be assigned to
// personnel.
type Procedure struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:64;index" json:"category"`
	Status      string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProcedureAssignment links a procedure to the user who must complete it.
type ProcedureAssignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProcedureID uint       `gorm:"not null;index" json:"procedure_id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	AssignedBy  uint       `gorm:"not null" json:"assigned_by"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Procedure *Procedure `gorm:"foreignKey:ProcedureID" json:"procedure,omitempty"`
}
