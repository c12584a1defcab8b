package database

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/koustreak/tabula/internal/errs"
)

// Dialect holds everything that differs between database engines: how to
// reach them, how to spell identifiers and placeholders, where the catalog
// lives, and what their native error codes mean.
//
// Driver subpackages (mysql, postgres, sqlite) register a Dialect from
// their init function; import them for side effects in main.
type Dialect interface {
	// Name is the value of Config.Driver that selects this dialect.
	Name() Driver

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN builds the data source name from a resolved Config.
	DSN(cfg *Config) (string, error)

	// DefaultPort is used when neither Config nor the environment sets one.
	DefaultPort() int

	// RequiresHost is false for embedded engines.
	RequiresHost() bool

	// QuoteIdent wraps an already validated identifier for SQL text.
	QuoteIdent(id Identifier) string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// ListTablesSQL returns base table names of the current database,
	// sorted by name. It takes no arguments.
	ListTablesSQL() string

	// ListColumnsSQL returns the column names of one table in declared
	// order. It takes the table name as its single argument.
	ListColumnsSQL() string

	// GeneratedKey reports the auto-generated key column that an INSERT
	// must RETURN. Dialects that expose LastInsertId return ok=false.
	GeneratedKey(ctx context.Context, conn *sql.Conn, table Identifier) (col Identifier, ok bool, err error)

	// Classify maps a driver-native error to an error kind. ok is false
	// when err did not come from this driver.
	Classify(err error) (kind errs.ErrKind, ok bool)
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[Driver]Dialect)
)

// Register makes a dialect available by name. It panics when called twice
// for the same name or with a nil dialect.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if d == nil {
		panic("database: Register dialect is nil")
	}
	if _, dup := dialects[d.Name()]; dup {
		panic("database: Register called twice for dialect " + string(d.Name()))
	}
	dialects[d.Name()] = d
}

// Dialects returns the names of the registered dialects, sorted.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, string(name))
	}
	sort.Strings(names)
	return names
}

func lookupDialect(name Driver) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}
