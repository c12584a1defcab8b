package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/koustreak/tabula/internal/errs"
)

// Classify translates err into an *errs.Error using d's native error codes.
//
// Order: errors that already carry a kind pass through unchanged; context
// expiry is a QueryError; then the dialect's own mapping; then generic
// connection failures; everything else is a QueryError.
func Classify(d Dialect, err error, msg string) error {
	if err == nil {
		return nil
	}

	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrKindQuery, msg+": timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindQuery, msg+": cancelled", err)
	}

	if d != nil {
		if kind, ok := d.Classify(err); ok {
			return errs.Wrap(kind, msg, err)
		}
	}

	if isConnectionFailure(err) {
		return errs.Wrap(errs.ErrKindConnection, msg, err)
	}
	return errs.Wrap(errs.ErrKindQuery, msg, err)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
