package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper also
// requires the constraint text to appear in the error.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	matched := false

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		matched = pgxErr.Code == pgUniqueViolation
	}

	var pqErr *pq.Error
	if !matched && errors.As(err, &pqErr) {
		matched = string(pqErr.Code) == pgUniqueViolation
	}

	msg := err.Error()
	if !matched {
		// Fallback for drivers that do not surface typed errors. The second
		// clause covers the sqlite driver used in tests.
		matched = strings.Contains(msg, "duplicate key value") ||
			strings.Contains(msg, "UNIQUE constraint failed")
	}

	if !matched {
		return false
	}
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return true
}
