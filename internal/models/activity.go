package models

import (
	"time"

	"gorm.io/datatypes"
)

// Actor type values for audit entries.
const (
	ActorTypeUser   = "user"
	ActorTypeAdmin  = "admin"
	ActorTypeSystem = "system"
)

// Audit action tags. The set is closed; new actions get a constant here.
const (
	ActionLogin             = "login"
	ActionLogout            = "logout"
	ActionSignup            = "signup"
	ActionProfileUpdate     = "profile_update"
	ActionUserApproved      = "user_approved"
	ActionUserRejected      = "user_rejected"
	ActionUserDeleted       = "user_deleted"
	ActionProcedureAdded    = "procedure_added"
	ActionProcedureUpdated  = "procedure_updated"
	ActionProcedureDeleted  = "procedure_deleted"
	ActionProcedureAssigned = "procedure_assigned"
	ActionBulkOperation     = "bulk_operation"
	ActionDataExport        = "data_export"
	ActionDataImport        = "data_import"
	ActionNotificationSent  = "notification_sent"
	ActionStatusChanged     = "status_changed"
	ActionFailedLogin       = "failed_login"
	ActionAccountLocked     = "account_locked"
)

// ActivityLog is an immutable audit entry. Exactly one of UserID/AdminID is
// set when ActorType is user/admin; both are nil for system actions.
// Metadata carries the request method, path and body key names only, never
// body values.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorType    string            `gorm:"size:16;not null;index" json:"actor_type"`
	UserID       *uint             `gorm:"index" json:"user_id,omitempty"`
	AdminID      *uint             `gorm:"index" json:"admin_id,omitempty"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	Description  string            `gorm:"type:text" json:"description"`
	TargetUserID *uint             `gorm:"index" json:"target_user_id,omitempty"`
	IPAddress    string            `gorm:"size:64" json:"ip_address"`
	UserAgent    string            `gorm:"size:512" json:"user_agent"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index:idx_activity_created,sort:desc" json:"created_at"`
}
