package db

import (
	"time"
)

// APIKey authenticates sample uploaders and API readers.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uint `gorm:"index;not null"`

	// Name identifies the uploader, e.g. "track-tablet".
	Name string `gorm:"size:128;not null"`

	// Environment groups keys by deployment (lab, field, internal).
	Environment string `gorm:"size:32;not null"`

	// Key is the bearer token value.
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// RetentionDays applies to samples uploaded with this key. 0 uses the
	// global maximum from config.
	RetentionDays int `gorm:"not null;default:0"`

	Active bool `gorm:"default:true"`

	User User `gorm:"foreignKey:UserID"`
}

// ExpiresAt returns the expiry stamp for a sample uploaded now with this
// key, clamped to maxDays.
func (k APIKey) ExpiresAt(now time.Time, maxDays int) *time.Time {
	days := k.RetentionDays
	if days <= 0 || (maxDays > 0 && days > maxDays) {
		days = maxDays
	}
	if days <= 0 {
		return nil
	}
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}
