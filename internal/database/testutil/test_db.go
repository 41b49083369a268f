// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/database"
	"github.com/charlesng35/authcore/internal/models"
)

// TestDBOption customises MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	migrate bool
	users   []*models.User
}

// WithAutoMigrate creates the schema after opening.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.migrate = true
	}
}

// WithUsers migrates the schema and inserts users as given, so explicit timestamps and
// verification flags are kept.
func WithUsers(users ...*models.User) TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.migrate = true
		cfg.users = append(cfg.users, users...)
	}
}

// MustOpenTestDB opens a private in-memory SQLite database closed on test cleanup.
// Each call gets its own shared-cache name so parallel tests never see each other's rows.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	var cfg testDBConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	query := url.Values{}
	query.Set("mode", "memory")
	query.Set("cache", "shared")
	query.Set("_foreign_keys", "1")
	query.Set("_busy_timeout", "5000")
	query.Set("_txlock", "immediate")

	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    "file:" + uuid.NewString() + "?" + query.Encode(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	if cfg.migrate {
		require.NoError(t, database.AutoMigrate(db))
	}
	for _, user := range cfg.users {
		require.NoError(t, db.Create(user).Error)
	}
	return db
}
