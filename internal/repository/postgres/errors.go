package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sakif/users-api/internal/apperror"
)

const (
	// SQLSTATE class 23: integrity constraint violation (unique, not null, check, ...).
	classIntegrityConstraint = "23"
	// SQLSTATE class 08: connection exception.
	classConnectionException = "08"

	codeStringDataRightTruncation = "22001"
	codeAdminShutdown             = "57P01"
	codeCannotConnectNow          = "57P03"
	codeTooManyConnections        = "53300"
)

// classify turns a pgx error into an apperror kind when it is one the
// handler layer cares about. Other errors are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return apperror.StorageUnavailable(err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return apperror.StorageUnavailable(err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case strings.HasPrefix(pgErr.Code, classIntegrityConstraint),
		pgErr.Code == codeStringDataRightTruncation:
		return apperror.ConstraintViolation(err)
	case strings.HasPrefix(pgErr.Code, classConnectionException),
		pgErr.Code == codeAdminShutdown,
		pgErr.Code == codeCannotConnectNow,
		pgErr.Code == codeTooManyConnections:
		return apperror.StorageUnavailable(err)
	}
	return err
}
