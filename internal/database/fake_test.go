package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"
	"sync"

	"github.com/koustreak/tabula/internal/errs"
)

// fakeDialect is registered under two names so config resolution can be
// tested without a real driver.
type fakeDialect struct {
	name         Driver
	port         int
	requiresHost bool
	kinds        map[string]errs.ErrKind
}

func (f fakeDialect) Name() Driver                    { return f.name }
func (f fakeDialect) DriverName() string              { return "fake" }
func (f fakeDialect) DSN(cfg *Config) (string, error) { return cfg.Database, nil }
func (f fakeDialect) DefaultPort() int                { return f.port }
func (f fakeDialect) RequiresHost() bool              { return f.requiresHost }
func (f fakeDialect) QuoteIdent(id Identifier) string { return "[" + string(id) + "]" }
func (f fakeDialect) Placeholder(n int) string        { return ":" + strconv.Itoa(n) }
func (f fakeDialect) ListTablesSQL() string           { return "" }
func (f fakeDialect) ListColumnsSQL() string          { return "" }

func (f fakeDialect) GeneratedKey(context.Context, *sql.Conn, Identifier) (Identifier, bool, error) {
	return "", false, nil
}

func (f fakeDialect) Classify(err error) (errs.ErrKind, bool) {
	kind, ok := f.kinds[err.Error()]
	return kind, ok
}

var (
	fakeServer = fakeDialect{
		name:         "fakeserver",
		port:         1234,
		requiresHost: true,
		kinds:        map[string]errs.ErrKind{"fake: no table": errs.ErrKindNoSuchTable},
	}
	fakeFile = fakeDialect{name: "fakefile"}
)

func init() {
	Register(fakeServer)
	Register(fakeFile)
	sql.Register("fake", fakeDriver{})
}

// pingHooks maps a DSN to the func its connections run on Ping.
var pingHooks sync.Map

func setPingHook(dsn string, fn func(ctx context.Context) error) {
	pingHooks.Store(dsn, fn)
}

// fakeDriver hands out connections that can only be pinged.
type fakeDriver struct{}

func (fakeDriver) Open(dsn string) (driver.Conn, error) { return &fakeConn{dsn: dsn}, nil }

type fakeConn struct{ dsn string }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("fake: no statements") }
func (c *fakeConn) Close() error                        { return nil }
func (c *fakeConn) Begin() (driver.Tx, error)           { return nil, errors.New("fake: no transactions") }

func (c *fakeConn) Ping(ctx context.Context) error {
	if fn, ok := pingHooks.Load(c.dsn); ok {
		return fn.(func(context.Context) error)(ctx)
	}
	return nil
}

func envOf(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
