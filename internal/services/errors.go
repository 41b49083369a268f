package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062

	fieldUnknown = ""
	fieldEmail   = "email"
	fieldAPIKey  = "api_key"
)

// uniqueViolation reports whether err is a uniqueness violation and, when the driver
// names the index or column, which user field collided.
func uniqueViolation(err error) (string, bool) {
	if err == nil {
		return fieldUnknown, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil {
		if pgErr.Code != pgUniqueViolation {
			return fieldUnknown, false
		}
		return collidingField(pgErr.ConstraintName + " " + pgErr.Detail), true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil {
		if myErr.Number != mysqlDuplicateEntry {
			return fieldUnknown, false
		}
		return collidingField(myErr.Message), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return collidingField(err.Error()), true
	}

	// sqlite reports "UNIQUE constraint failed: users.email".
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "unique constraint") || strings.Contains(lower, "duplicate key") {
		return collidingField(lower), true
	}
	return fieldUnknown, false
}

func collidingField(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "api_key"):
		return fieldAPIKey
	case strings.Contains(lower, "email"):
		return fieldEmail
	default:
		return fieldUnknown
	}
}
