package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"feetfit/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL)
// and migrates the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt keeps the postgres migrator off the simple protocol, which
	// fails on "SELECT * FROM table LIMIT 1" with "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &APIKey{}, &SensorSample{}, &PressureFrame{}, &GaitReport{})
}

// EnsureBootstrapAdmin makes sure there is at least one admin user
// corresponding to the bootstrap credentials in config. If a user with
// that username already exists, it is left as-is.
func EnsureBootstrapAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&User{}).Where("username = ?", cfg.AdminUser).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Create(&User{
		Username:     cfg.AdminUser,
		PasswordHash: string(hash),
		IsAdmin:      true,
	}).Error
}

// EnsureBootstrapAPIKey provisions the internal uploader key for the admin
// user. An existing key row owned by someone else is reassigned to admin.
func EnsureBootstrapAPIKey(db *gorm.DB, cfg *config.Config) error {
	if cfg.InternalAPIKey == "" {
		return nil
	}

	var admin User
	if err := db.Where("username = ?", cfg.AdminUser).First(&admin).Error; err != nil {
		return err
	}

	// Find so "not found" doesn't log as error.
	var existing APIKey
	if err := db.Where("key = ?", cfg.InternalAPIKey).Limit(1).Find(&existing).Error; err == nil && existing.ID != 0 {
		if existing.UserID == admin.ID {
			return nil
		}
		existing.UserID = admin.ID
		existing.Name = "gaitimport"
		existing.Environment = "internal"
		existing.Active = true
		return db.Save(&existing).Error
	}

	return db.Create(&APIKey{
		UserID:        admin.ID,
		Name:          "gaitimport",
		Environment:   "internal",
		Key:           cfg.InternalAPIKey,
		Active:        true,
		RetentionDays: cfg.RetentionDays,
	}).Error
}
