package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the account role carried in auth tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a shop account
type User struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Email         string         `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Name          string         `json:"name" gorm:"type:varchar(255)"`
	PasswordHash  *string        `json:"-" gorm:"type:varchar(255)"`
	Role          Role           `json:"role" gorm:"type:varchar(16);not null;default:'USER'"`
	EmailVerified *time.Time     `json:"email_verified,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsAdmin reports whether the user may use the back-office.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
