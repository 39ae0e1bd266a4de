package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// forUpdate locks selected rows until the surrounding transaction ends.
// The SQLite dialect drops the clause.
var forUpdate = clause.Locking{Strength: clause.LockingStrengthUpdate}

// isUniqueViolation reports whether err is a duplicate key error, either
// translated by GORM or raw from the pgx driver.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// isNotFound reports whether err is GORM's record not found
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
