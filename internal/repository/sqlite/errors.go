package sqlite

import (
	"database/sql"
	"database/sql/driver"
	"errors"

	// Importing modernc.org/sqlite registers the "sqlite" driver used by New.
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/users-api/internal/apperror"
)

// classify turns a driver error into an apperror kind when it is one the
// handler layer cares about. Other errors are returned unchanged.
//
// SQLite reports extended result codes (e.g. SQLITE_CONSTRAINT_UNIQUE = 2067);
// the low byte is the primary code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return apperror.StorageUnavailable(err)
	}

	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return apperror.ConstraintViolation(err)
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED,
		sqlite3.SQLITE_IOERR, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_FULL:
		return apperror.StorageUnavailable(err)
	}
	return err
}
