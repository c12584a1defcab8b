// Package mysql registers the MySQL dialect with package database.
//
// Import it for side effects:
//
//	import _ "github.com/koustreak/tabula/internal/database/mysql"
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	gomysql "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/errs"
)

const defaultPort = 3306

func init() {
	database.Register(Dialect{})
}

// Dialect implements database.Dialect for MySQL and MariaDB.
type Dialect struct{}

func (Dialect) Name() database.Driver  { return database.DriverMySQL }
func (Dialect) DriverName() string     { return "mysql" }
func (Dialect) DefaultPort() int       { return defaultPort }
func (Dialect) RequiresHost() bool     { return true }
func (Dialect) Placeholder(int) string { return "?" }

// QuoteIdent wraps the identifier in backticks. Validated identifiers
// never contain one.
func (Dialect) QuoteIdent(id database.Identifier) string {
	return "`" + string(id) + "`"
}

// DSN builds user:pass@tcp(host:port)/dbname?parseTime=true&... through
// mysql.Config so that credentials are escaped correctly.
func (Dialect) DSN(cfg *database.Config) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mc := gomysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.AcquireTimeout
	mc.ReadTimeout = cfg.QueryTimeout
	mc.WriteTimeout = cfg.QueryTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}

	switch strings.ToLower(cfg.TLS) {
	case "", database.TLSDisable, "false":
	case database.TLSRequire:
		mc.TLSConfig = "true"
	case database.TLSSkipVerify:
		mc.TLSConfig = "skip-verify"
	case database.TLSPreferred:
		mc.TLSConfig = "preferred"
	default:
		return "", fmt.Errorf("unsupported tls mode %q", cfg.TLS)
	}

	return mc.FormatDSN(), nil
}

func (Dialect) ListTablesSQL() string {
	return `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`
}

func (Dialect) ListColumnsSQL() string {
	return `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name   = ?
		ORDER BY ordinal_position`
}

// GeneratedKey is never needed: MySQL reports AUTO_INCREMENT values through
// LastInsertId.
func (Dialect) GeneratedKey(context.Context, *sql.Conn, database.Identifier) (database.Identifier, bool, error) {
	return "", false, nil
}

func (Dialect) Classify(err error) (errs.ErrKind, bool) {
	return classify(err)
}
