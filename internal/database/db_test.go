package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatalf("expected health query to succeed: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := t.TempDir() + "/nested/authcore.db"

	db, err := Open(Config{Driver: "sqlite", Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range []interface{}{
		&models.User{},
		&models.UserSession{},
		&models.ActivationToken{},
		&models.CacheEntry{},
	} {
		require.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}

	// Running twice must be harmless.
	require.NoError(t, AutoMigrate(db))
}

func TestSingleActiveSessionIndex(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := &models.User{Email: "index@example.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	first := &models.UserSession{UserID: user.ID, RefreshTokenHash: "hash-1", IsActive: true}
	require.NoError(t, db.Create(first).Error)

	second := &models.UserSession{UserID: user.ID, RefreshTokenHash: "hash-2", IsActive: true}
	require.Error(t, db.Create(second).Error)

	inactive := &models.UserSession{UserID: user.ID, RefreshTokenHash: "hash-3", IsActive: false}
	require.NoError(t, db.Create(inactive).Error)
}

func TestApplyPoolSettings(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, applyPoolSettings(db, Config{MaxIdleConns: 2, ConnMaxLifetime: time.Minute}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&" + sqliteQuery(nil),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
