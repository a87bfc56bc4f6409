package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether the provided error is a Postgres unique
// violation. When constraintName is provided, the violation must reference
// that constraint. Falls back to message matching for drivers that do not
// surface a *pgconn.PgError (the sqlite test harness among them).
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != uniqueViolationCode {
			return false
		}
		if constraintName != "" {
			return pgErr.ConstraintName == constraintName
		}
		return true
	}

	// Sqlite reports violations by column, not index name, so the generic
	// message satisfies a named lookup here.
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
