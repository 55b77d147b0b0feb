package db

import (
	"time"
)

// User is an operator account. Users own uploader API keys; the bootstrap
// admin is created from env on startup.
type User struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`

	// IsAdmin users may manage other users and keys and read /metrics.
	IsAdmin bool `gorm:"default:false"`
}
