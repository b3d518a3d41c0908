package models

import (
	"fmt"
	"time"
)

// Recipient type discriminators as persisted in the notifications table.
const (
	RecipientTypeUser  = "User"
	RecipientTypeAdmin = "Admin"
)

// Notification type values.
const (
	NotificationTypeApproval          = "approval"
	NotificationTypeRejection         = "rejection"
	NotificationTypeProcedureAssigned = "procedure_assigned"
	NotificationTypeProcedureUpdated  = "procedure_updated"
	NotificationTypeStatusChanged     = "status_changed"
	NotificationTypeMessage           = "message"
	NotificationTypeWarning           = "warning"
	NotificationTypeInfo              = "info"
	NotificationTypeSystem            = "system"
)

// Notification priorities, used for client-side styling and ordering only.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// NotificationTTL is how long a notification stays eligible for delivery
// before the janitor removes it.
const NotificationTTL = 90 * 24 * time.Hour

// Recipient is a tagged reference to either a user or an admin. The fields
// are unexported so the only way to build one is through UserRecipient or
// AdminRecipient, which keeps invalid type/id pairings unrepresentable.
type Recipient struct {
	kind string
	id   uint
}

// UserRecipient addresses a notification to a personnel account.
func UserRecipient(id uint) Recipient {
	return Recipient{kind: RecipientTypeUser, id: id}
}

// AdminRecipient addresses a notification to an administrator account.
func AdminRecipient(id uint) Recipient {
	return Recipient{kind: RecipientTypeAdmin, id: id}
}

// Kind returns the persisted discriminator for the recipient.
func (r Recipient) Kind() string { return r.kind }

// ID returns the recipient identifier.
func (r Recipient) ID() uint { return r.id }

// IsZero reports whether the recipient was never initialised.
func (r Recipient) IsZero() bool { return r.kind == "" }

// String renders the recipient for logs and cache keys.
func (r Recipient) String() string {
	return fmt.Sprintf("%s:%d", r.kind, r.id)
}

// Notification is a persisted message addressed to a single recipient.
// IsRead flips at most once from false to true; ReadAt records the first
// transition and never changes afterwards.
type Notification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	RecipientID   uint       `gorm:"not null;index:idx_notifications_recipient" json:"recipient_id"`
	RecipientType string     `gorm:"size:16;not null;index:idx_notifications_recipient" json:"recipient_type"`
	Type          string     `gorm:"size:32;not null" json:"type"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	Priority      string     `gorm:"size:16;not null;default:medium" json:"priority"`
	IsRead        bool       `gorm:"not null;default:false;index" json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	ActionURL     string     `gorm:"size:512" json:"action_url,omitempty"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Recipient reconstructs the tagged recipient reference from the persisted
// columns.
func (n Notification) Recipient() Recipient {
	return Recipient{kind: n.RecipientType, id: n.RecipientID}
}
