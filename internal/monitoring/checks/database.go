package checks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/authcore/internal/monitoring"
)

const defaultDatabaseTimeout = 2 * time.Second

var errNoDatabase = errors.New("database not configured")

// Database pings the primary store. Accounts and sessions live there, so the probe is critical.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Probe {
	return monitoring.Probe{
		Name:     "database",
		Critical: true,
		Timeout:  chooseTimeout(timeout, defaultDatabaseTimeout),
		Check: func(ctx context.Context) (string, error) {
			if db == nil {
				return "", errNoDatabase
			}
			sqlDB, err := db.DB()
			if err != nil {
				return "", err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return "", err
			}
			return db.Dialector.Name(), nil
		},
	}
}
