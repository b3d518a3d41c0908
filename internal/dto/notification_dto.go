package dto

import (
	"time"

	"github.com/perscom/personnel-api/internal/models"
)

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint       `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	ActionURL string     `json:"action_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotificationResponse converts a notification model to a DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        model.ID,
		Type:      model.Type,
		Title:     model.Title,
		Message:   model.Message,
		Priority:  model.Priority,
		IsRead:    model.IsRead,
		ReadAt:    model.ReadAt,
		ActionURL: model.ActionURL,
		CreatedAt: model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}

// NotificationFeedResponse is the poll payload: the recipient's most recent
// notifications plus the authoritative unread count.
type NotificationFeedResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

// NotificationSendRequest fans a single notification out to many recipients.
// When Broadcast is set the recipient id list is ignored and every account
// of the recipient type is addressed.
type NotificationSendRequest struct {
	RecipientType string `json:"recipient_type" validate:"required,oneof=User Admin"`
	RecipientIDs  []uint `json:"recipient_ids" validate:"omitempty,dive,min=1"`
	Broadcast     bool   `json:"broadcast"`
	Type          string `json:"type" validate:"required,oneof=approval rejection procedure_assigned procedure_updated status_changed message warning info system"`
	Title         string `json:"title" validate:"required,min=1,max=255"`
	Message       string `json:"message" validate:"required,min=1,max=2000"`
	Priority      string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ActionURL     string `json:"action_url" validate:"omitempty,max=512"`
}

// NotificationSendResponse reports the fan-out size.
type NotificationSendResponse struct {
	Count int `json:"count"`
}

// MarkAllReadResponse reports how many records flipped to read.
type MarkAllReadResponse struct {
	Count int64 `json:"count"`
}
