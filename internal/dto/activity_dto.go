package dto

import (
	"time"

	"github.com/perscom/personnel-api/internal/models"
)

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page         int
	PageSize     int
	ActorType    string
	Action       string
	TargetUserID uint
}

// ActivityResponse serializes audit entries.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActorType    string                 `json:"actor_type"`
	UserID       *uint                  `json:"user_id,omitempty"`
	AdminID      *uint                  `json:"admin_id,omitempty"`
	Action       string                 `json:"action"`
	Description  string                 `json:"description"`
	TargetUserID *uint                  `json:"target_user_id,omitempty"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:           entry.ID,
		ActorType:    entry.ActorType,
		UserID:       entry.UserID,
		AdminID:      entry.AdminID,
		Action:       entry.Action,
		Description:  entry.Description,
		TargetUserID: entry.TargetUserID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		Metadata:     entry.Metadata,
		CreatedAt:    entry.CreatedAt,
	}
}
