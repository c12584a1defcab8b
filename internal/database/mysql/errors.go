package mysql

import (
	"errors"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/tabula/internal/errs"
)

// MySQL server error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errDBAccessDenied     = 1044
	errAccessDenied       = 1045
	errTableAccessDenied  = 1142
	errColumnAccessDenied = 1143
	errSpecificAccess     = 1227
	errNoSuchTable        = 1146
	errDuplicateFieldName = 1060
	errDuplicateEntry     = 1062
	errDuplicateKeyName   = 1586
	errTooManyConnections = 1040
	errUnknownDatabase    = 1049
	errServerShutdown     = 1053
	errBadNull            = 1048
	errTruncatedWrongVal  = 1366
	errDataTooLong        = 1406
)

// classify maps go-sql-driver/mysql errors to error kinds.
func classify(err error) (errs.ErrKind, bool) {
	if errors.Is(err, gomysql.ErrInvalidConn) {
		return errs.ErrKindConnection, true
	}

	var mysqlErr *gomysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return errs.ErrKindUnknown, false
	}

	switch mysqlErr.Number {
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errColumnAccessDenied, errSpecificAccess:
		return errs.ErrKindAccessDenied, true
	case errNoSuchTable:
		return errs.ErrKindNoSuchTable, true
	case errDuplicateFieldName:
		return errs.ErrKindColumnAlreadyExists, true
	case errDuplicateEntry, errDuplicateKeyName:
		return errs.ErrKindDuplicateEntry, true
	case errTooManyConnections, errUnknownDatabase, errServerShutdown:
		return errs.ErrKindConnection, true
	case errBadNull, errTruncatedWrongVal, errDataTooLong:
		return errs.ErrKindValidation, true
	default:
		return errs.ErrKindQuery, true
	}
}
