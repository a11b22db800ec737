package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/mastery/ent"
	"github.com/abhisek/mastery/internal/apperr"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps a driver or ent error onto the engine's failure kinds.
// Already-classified errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case isConflict(err):
		return apperr.Wrap(apperr.KindStorageConflict, op, err)
	case isTransient(err):
		return apperr.Wrap(apperr.KindStorageUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isConflict reports whether err is a constraint violation.
func isConflict(err error) bool {
	if ent.IsConstraintError(err) {
		return true
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		// Class 23: integrity constraint violation.
		return strings.HasPrefix(pe.Code, "23")
	}
	return false
}

// isTransient reports whether err is a failure the caller may retry.
func isTransient(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, driver.ErrBadConn):
		return true
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		// 08 connection exception, 40 transaction rollback,
		// 53 insufficient resources, 57 operator intervention.
		for _, class := range []string{"08", "40", "53", "57"} {
			if strings.HasPrefix(pe.Code, class) {
				return true
			}
		}
	}
	return pgconn.Timeout(err)
}
