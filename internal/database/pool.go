// Package database is tabula's generic relational data access layer.
//
// A Pool owns a bounded set of connections to one database. It is created
// with New, opened once with Init, shared by every request handler, and
// shut down with Close:
//
//	pool := database.New(database.WithLogger(log))
//	if err := pool.Init(ctx, database.Config{Driver: database.DriverMySQL, Database: "guestbook"}); err != nil {
//	    return err
//	}
//	defer pool.Close(context.Background())
//
//	rows, err := pool.QueryTable(ctx, "comments")
//
// Table and column names are validated with ValidateIdentifier before they
// reach SQL text; every value is bound as a parameter. All errors are
// *errs.Error values classified by kind.
package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/koustreak/tabula/internal/errs"
	"github.com/koustreak/tabula/internal/logger"
)

type poolState int

const (
	stateNew poolState = iota
	stateInitializing
	stateOpen
	stateClosed
)

// Pool is a bounded connection pool plus the generic data operations.
// It is safe for concurrent use by multiple goroutines.
type Pool struct {
	mu      sync.RWMutex
	state   poolState
	cfg     Config
	dialect Dialect
	db      *sql.DB
	gate    *gate

	log       *logger.Logger
	lookupEnv func(string) (string, bool)
}

// Option configures a Pool built by New.
type Option func(*Pool)

// WithLogger sets the logger; the default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l.Component("database")
		}
	}
}

// WithEnv replaces os.LookupEnv as the environment source for Init.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(p *Pool) {
		if lookup != nil {
			p.lookupEnv = lookup
		}
	}
}

// New returns an uninitialized pool. Every data operation fails with
// NotInitialized until Init succeeds.
func New(opts ...Option) *Pool {
	p := &Pool{
		log:       logger.Nop(),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init resolves cfg against the environment and defaults, opens the pool
// and verifies it with a ping. Operations called while Init is connecting
// fail with NotInitialized.
//
// Init may succeed at most once per Pool. A second call, including one
// after Close or one racing a call still connecting, fails with
// AlreadyInitialized and leaves the existing pool untouched. A failed Init
// may be retried.
func (p *Pool) Init(ctx context.Context, cfg Config) error {
	p.mu.Lock()
	switch p.state {
	case stateInitializing:
		p.mu.Unlock()
		return errs.New(errs.ErrKindAlreadyInitialized, "pool is already being initialized")
	case stateOpen:
		p.mu.Unlock()
		return errs.New(errs.ErrKindAlreadyInitialized, "pool is already initialized")
	case stateClosed:
		p.mu.Unlock()
		return errs.New(errs.ErrKindAlreadyInitialized, "pool was closed; create a new one")
	}
	p.state = stateInitializing
	p.mu.Unlock()

	resolved, dialect, db, err := p.connect(ctx, cfg)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == stateClosed {
		if db != nil {
			_ = db.Close()
		}
		return errs.New(errs.ErrKindNotInitialized, "pool was closed during Init")
	}
	if err != nil {
		p.state = stateNew
		return err
	}

	p.cfg = resolved
	p.dialect = dialect
	p.db = db
	p.gate = newGate(resolved.MaxConns, resolved.QueueLimit)
	p.state = stateOpen

	p.log.With().
		Str("driver", string(resolved.Driver)).
		Str("host", resolved.Host).
		Str("database", resolved.Database).
		Int("max_conns", resolved.MaxConns).
		Int("queue_limit", resolved.QueueLimit).
		Str("tls", resolved.TLS).
		Logger().
		Info("connection pool initialized")
	return nil
}

// connect opens and pings the database without holding p.mu.
func (p *Pool) connect(ctx context.Context, cfg Config) (Config, Dialect, *sql.DB, error) {
	resolved, err := Resolve(cfg, p.lookupEnv)
	if err != nil {
		return Config{}, nil, nil, err
	}
	dialect, _ := lookupDialect(resolved.Driver)

	dsn, err := dialect.DSN(&resolved)
	if err != nil {
		return Config{}, nil, nil, errs.Wrap(errs.ErrKindConfig, "build data source name", err)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return Config{}, nil, nil, errs.Wrap(errs.ErrKindConnection, "open database", err)
	}
	db.SetMaxOpenConns(resolved.MaxConns)
	db.SetMaxIdleConns(resolved.MaxConns)
	db.SetConnMaxLifetime(resolved.ConnMaxLifetime)
	db.SetConnMaxIdleTime(resolved.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, resolved.AcquireTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return Config{}, nil, nil, errs.Wrap(errs.ErrKindConnection, "connect to database", err)
	}
	return resolved, dialect, db, nil
}

// Close stops accepting new operations, waits up to DrainTimeout (or until
// ctx is done) for checked-out connections to be released, then closes
// every connection.
//
// If the drain deadline passes, the pool is closed anyway and statements
// still running may fail mid-flight; their results are lost.
//
// Close is idempotent: on a pool that was never initialized or is already
// closed it does nothing and returns nil. Closing while Init is connecting
// makes that Init fail with NotInitialized.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.state != stateOpen {
		p.state = stateClosed
		p.mu.Unlock()
		return nil
	}
	p.state = stateClosed
	db, g, drainTimeout := p.db, p.gate, p.cfg.DrainTimeout
	p.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	start := time.Now()
	drained := g.drain(drainCtx)
	if !drained {
		inFlight, _ := g.stats()
		p.log.WarnWith("drain deadline passed, force-closing pool", nil, map[string]any{
			"in_flight": inFlight,
		})
	}

	err := db.Close()
	if drained {
		g.reopen()
	}
	if err != nil {
		return errs.Wrap(errs.ErrKindConnection, "close database", err)
	}

	p.log.InfoWith("connection pool closed", map[string]any{
		"drained": drained,
		"took":    time.Since(start),
	})
	return nil
}

// Ping verifies the database is reachable through a pooled connection.
func (p *Pool) Ping(ctx context.Context) error {
	return p.withConn(ctx, "ping", func(ctx context.Context, conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Config returns the resolved configuration. It includes the password.
func (p *Pool) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Stats reports database/sql pool statistics; zero before Init.
func (p *Pool) Stats() sql.DBStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// withConn runs fn on an exclusively checked-out connection. The gate slot
// and the connection are released on every return path. fn's error is
// classified with the pool's dialect.
func (p *Pool) withConn(ctx context.Context, op string, fn func(ctx context.Context, conn *sql.Conn) error) error {
	p.mu.RLock()
	state, db, g, d, cfg := p.state, p.db, p.gate, p.dialect, p.cfg
	p.mu.RUnlock()

	if err := notOpen(state); err != nil {
		return err
	}

	if err := g.acquire(ctx, cfg.AcquireTimeout); err != nil {
		return err
	}
	defer g.release()

	// Close may have run while we waited for a slot.
	if err := p.guard(); err != nil {
		return err
	}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, cfg.AcquireTimeout)
	conn, err := db.Conn(acquireCtx)
	timedOut := errors.Is(acquireCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancelAcquire()
	if err != nil {
		if timedOut {
			return errs.Wrap(errs.ErrKindPoolExhausted, op+": timed out opening a connection", err)
		}
		return Classify(d, err, op+": acquire connection")
	}
	defer conn.Close()

	queryCtx, cancelQuery := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancelQuery()

	if err := fn(queryCtx, conn); err != nil {
		return Classify(d, err, op)
	}
	return nil
}

func (p *Pool) currentState() poolState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// guard fails fast when the pool is not open. Operations call it before
// validating their arguments.
func (p *Pool) guard() error {
	return notOpen(p.currentState())
}

func notOpen(s poolState) error {
	switch s {
	case stateNew:
		return errs.New(errs.ErrKindNotInitialized, "pool is not initialized; call Init first")
	case stateInitializing:
		return errs.New(errs.ErrKindNotInitialized, "pool is still connecting")
	case stateClosed:
		return errs.New(errs.ErrKindNotInitialized, "pool is closed")
	}
	return nil
}
