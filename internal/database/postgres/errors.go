package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/tabula/internal/errs"
)

// PostgreSQL SQLSTATE error codes
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrUndefinedTable        = "42P01"
	pgErrDuplicateColumn       = "42701"
	pgErrUniqueViolation       = "23505"
	pgErrNotNullViolation      = "23502"
	pgErrStringTooLong         = "22001"
	pgErrInvalidAuthorization  = "28000"
	pgErrInvalidPassword       = "28P01"
	pgErrInsufficientPrivilege = "42501"
	pgErrInvalidCatalogName    = "3D000"
	pgErrTooManyConnections    = "53300"

	pgClassConnection = "08"
)

// classify maps pgx errors to error kinds.
func classify(err error) (errs.ErrKind, bool) {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errs.ErrKindConnection, true
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return errs.ErrKindUnknown, false
	}

	switch pgErr.Code {
	case pgErrUndefinedTable:
		return errs.ErrKindNoSuchTable, true
	case pgErrDuplicateColumn:
		return errs.ErrKindColumnAlreadyExists, true
	case pgErrUniqueViolation:
		return errs.ErrKindDuplicateEntry, true
	case pgErrInvalidAuthorization, pgErrInvalidPassword, pgErrInsufficientPrivilege:
		return errs.ErrKindAccessDenied, true
	case pgErrInvalidCatalogName, pgErrTooManyConnections:
		return errs.ErrKindConnection, true
	case pgErrNotNullViolation, pgErrStringTooLong:
		return errs.ErrKindValidation, true
	}
	if strings.HasPrefix(pgErr.Code, pgClassConnection) {
		return errs.ErrKindConnection, true
	}
	return errs.ErrKindQuery, true
}
