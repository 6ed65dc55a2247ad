package database

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises duplicate-key failures from every driver the
// store can run on: gorm's translated error, pgx, lib/pq and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps a gorm error onto the apperr taxonomy.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	default:
		return apperr.Unavailable(err, op)
	}
}
