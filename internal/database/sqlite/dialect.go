// Package sqlite registers the SQLite dialect with package database.
// Config.Database is the path of the database file; host, port and
// credentials are ignored.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3" // registers the "sqlite3" database/sql driver

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/errs"
)

const defaultBusyTimeoutMillis = 5000

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for SQLite through mattn/go-sqlite3.
type Dialect struct{}

func (Dialect) Name() database.Driver  { return database.DriverSQLite }
func (Dialect) DriverName() string     { return "sqlite3" }
func (Dialect) DefaultPort() int       { return 0 }
func (Dialect) RequiresHost() bool     { return false }
func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) QuoteIdent(id database.Identifier) string {
	return `"` + string(id) + `"`
}

// DSN returns a file: URI. The busy timeout follows AcquireTimeout so that
// writers wait for the database lock as long as they would for a slot.
func (Dialect) DSN(cfg *database.Config) (string, error) {
	busy := cfg.AcquireTimeout.Milliseconds()
	if busy <= 0 {
		busy = defaultBusyTimeoutMillis
	}

	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(busy, 10))
	q.Set("_foreign_keys", "on")
	return "file:" + uriPath.Replace(cfg.Database) + "?" + q.Encode(), nil
}

// uriPath escapes the characters that end the path part of an SQLite URI
// filename. SQLite decodes %HH escapes before opening the file.
var uriPath = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

func (Dialect) ListTablesSQL() string {
	return `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
}

func (Dialect) ListColumnsSQL() string {
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}

// GeneratedKey is never needed: rowid tables report LastInsertId.
func (Dialect) GeneratedKey(context.Context, *sql.Conn, database.Identifier) (database.Identifier, bool, error) {
	return "", false, nil
}

// Classify maps sqlite3.Error codes. SQLite reports a missing table and a
// duplicate column as generic SQLITE_ERROR, so those two are matched on
// the message text.
func (Dialect) Classify(err error) (errs.ErrKind, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return errs.ErrKindUnknown, false
	}

	switch se.Code {
	case sqlite3.ErrConstraint:
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errs.ErrKindDuplicateEntry, true
		case sqlite3.ErrConstraintNotNull:
			return errs.ErrKindValidation, true
		}
		return errs.ErrKindQuery, true
	case sqlite3.ErrAuth, sqlite3.ErrPerm, sqlite3.ErrReadonly:
		return errs.ErrKindAccessDenied, true
	case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
		return errs.ErrKindConnection, true
	}

	msg := se.Error()
	switch {
	case strings.Contains(msg, "no such table"):
		return errs.ErrKindNoSuchTable, true
	case strings.Contains(msg, "duplicate column name"):
		return errs.ErrKindColumnAlreadyExists, true
	}
	return errs.ErrKindQuery, true
}
