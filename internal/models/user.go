package models

import "time"

// User status values cover the registration and lockout lifecycle.
const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusRejected = "rejected"
	UserStatusLocked   = "locked"
)

// User represents a registered member of personnel.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ServiceNumber string     `gorm:"size:32;uniqueIndex;not null" json:"service_number"`
	Name          string     `gorm:"size:255;not null" json:"name"`
	Email         string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Rank          string     `gorm:"size:64" json:"rank"`
	Unit          string     `gorm:"size:128" json:"unit"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-"`
	Status        string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	FailedLogins  int        `gorm:"not null;default:0" json:"-"`
	LockedUntil   *time.Time `json:"-"`
	PhotoURL      string     `gorm:"size:512" json:"photo_url,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Admin represents an administrator account. Admins live in their own table
// so notification recipients can resolve against the right collection.
type Admin struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
