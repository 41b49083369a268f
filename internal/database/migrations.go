package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

// singleActiveSessionIndex enforces at most one active refresh token per user on
// dialects that support partial indexes.
const singleActiveSessionIndex = "CREATE UNIQUE INDEX IF NOT EXISTS idx_user_sessions_single_active ON user_sessions (user_id) WHERE is_active"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.ActivationToken{},
		&models.CacheEntry{},
	); err != nil {
		return err
	}
	return ensureSessionIndexes(db)
}

func ensureSessionIndexes(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
		if err := db.Exec(singleActiveSessionIndex).Error; err != nil {
			return fmt.Errorf("create single active session index: %w", err)
		}
	default:
		// MySQL has no partial indexes; SessionStore serialises rotation with row locks.
	}
	return nil
}
