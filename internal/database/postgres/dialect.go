// Package postgres registers the PostgreSQL dialect with package database.
// Connections go through pgx's database/sql adapter.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/errs"
)

const defaultPort = 5432

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Name() database.Driver { return database.DriverPostgres }
func (Dialect) DriverName() string    { return "pgx" }
func (Dialect) DefaultPort() int      { return defaultPort }
func (Dialect) RequiresHost() bool    { return true }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// QuoteIdent wraps the identifier in double quotes, which also preserves
// its case.
func (Dialect) QuoteIdent(id database.Identifier) string {
	return `"` + string(id) + `"`
}

// DSN builds a postgres:// URL. url.URL escapes the credentials.
func (Dialect) DSN(cfg *database.Config) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	sslMode, err := sslMode(cfg.TLS)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	if secs := int(cfg.AcquireTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// sslMode maps the shared TLS setting onto libpq sslmode values. pgx has no
// "verify but tolerate failure" mode, so true and skip-verify both require
// TLS without verifying the chain.
func sslMode(tls string) (string, error) {
	switch strings.ToLower(tls) {
	case "", database.TLSDisable, "false":
		return "disable", nil
	case database.TLSRequire, database.TLSSkipVerify:
		return "require", nil
	case database.TLSPreferred:
		return "prefer", nil
	}
	return "", fmt.Errorf("unsupported tls mode %q", tls)
}

func (Dialect) ListTablesSQL() string {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`
}

func (Dialect) ListColumnsSQL() string {
	return `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name   = $1
		ORDER BY ordinal_position`
}

const generatedKeySQL = `
	SELECT column_name
	FROM information_schema.columns
	WHERE table_schema = current_schema()
	  AND table_name   = $1
	  AND (is_identity = 'YES' OR column_default LIKE 'nextval(%')
	ORDER BY ordinal_position
	LIMIT 1`

// GeneratedKey finds the identity or serial column of table. PostgreSQL
// has no LastInsertId, so InsertData appends RETURNING for it.
func (Dialect) GeneratedKey(ctx context.Context, conn *sql.Conn, table database.Identifier) (database.Identifier, bool, error) {
	var col string
	err := conn.QueryRowContext(ctx, generatedKeySQL, string(table)).Scan(&col)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	id, err := database.ValidateIdentifier(col)
	if err != nil {
		// Columns created outside tabula may need quoting we refuse to do.
		return "", false, nil
	}
	return id, true, nil
}

func (Dialect) Classify(err error) (errs.ErrKind, bool) {
	return classify(err)
}
