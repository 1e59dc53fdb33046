package models

import (
	"time"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the platform account that owns a wallet. Only the fields the
// ledger API surface needs are kept here; profile data lives elsewhere.
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
