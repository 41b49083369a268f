package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteQuery takes the write lock when a transaction begins, so concurrent rotations
// queue on the busy timeout instead of failing with SQLITE_BUSY on lock upgrade.
func sqliteQuery(extra map[string]string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "1")
	q.Set("_busy_timeout", "5000")
	q.Set("_txlock", "immediate")
	for k, v := range extra {
		q.Set(k, v)
	}
	return q.Encode()
}

// sqliteDSN resolves cfg to a DSN and reports whether it names an in-memory database.
func sqliteDSN(cfg Config) (dsn string, inMemory bool, err error) {
	if dsn = strings.TrimSpace(cfg.DSN); dsn != "" {
		return dsn, strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, ":memory:"), nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return "file::memory:?" + sqliteQuery(map[string]string{"cache": "shared"}), true, nil
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return "file:" + filepath.ToSlash(path) + "?" + sqliteQuery(map[string]string{"_journal_mode": "WAL"}), false, nil
}

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, inMemory, err := sqliteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(logger.Default.LogMode(logger.Silent)))
	if err != nil {
		return nil, err
	}

	if inMemory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// Each connection to a private in-memory database would see its own empty schema.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
