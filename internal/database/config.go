package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/tabula/internal/errs"
)

// Driver identifies the database engine.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// TLS modes accepted in Config.TLS.
const (
	TLSDisable    = "disable"
	TLSRequire    = "true"
	TLSSkipVerify = "skip-verify"
	TLSPreferred  = "preferred"
)

// Environment variables consulted by Resolve.
const (
	EnvDriver         = "DB_DRIVER"
	EnvHost           = "DB_HOST"
	EnvPort           = "DB_PORT"
	EnvUser           = "DB_USER"
	EnvPassword       = "DB_PASSWORD"
	EnvDatabase       = "DB_NAME"
	EnvMaxConns       = "DB_CONNECTION_LIMIT"
	EnvQueueLimit     = "DB_QUEUE_LIMIT"
	EnvAcquireTimeout = "DB_ACQUIRE_TIMEOUT"
	EnvQueryTimeout   = "DB_QUERY_TIMEOUT"
	EnvTLS            = "DB_TLS"
	EnvAppEnv         = "APP_ENV"
)

const (
	defaultDriver          = DriverMySQL
	defaultHost            = "localhost"
	defaultUser            = "root"
	defaultMaxConns        = 10
	defaultQueueLimit      = 50
	defaultAcquireTimeout  = 60 * time.Second
	defaultQueryTimeout    = 60 * time.Second
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultDrainTimeout    = 10 * time.Second
)

// FieldLimits maps table → column → maximum length in characters.
// InsertData and UpdateData reject string values longer than the limit
// before any statement is sent.
type FieldLimits map[string]map[string]int

// DefaultFieldLimits are the bounds of the guestbook table.
func DefaultFieldLimits() FieldLimits {
	return FieldLimits{
		"comments": {"title": 255, "content": 1000},
	}
}

// Config holds everything needed to open and bound a connection pool.
//
// A zero field means "unset". Resolve fills each unset field from the
// environment and then from the defaults, one field at a time.
type Config struct {
	Driver   Driver `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Database is the schema name; for sqlite it is the database file path.
	Database string `yaml:"database"`

	// Pool limits
	MaxConns        int           `yaml:"max_conns"`   // concurrent checkouts
	QueueLimit      int           `yaml:"queue_limit"` // callers allowed to wait for a checkout
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`

	// Timeouts
	AcquireTimeout time.Duration `yaml:"acquire_timeout"` // wait for a free connection / dial
	QueryTimeout   time.Duration `yaml:"query_timeout"`   // per-statement deadline
	DrainTimeout   time.Duration `yaml:"drain_timeout"`   // Close waits this long for checkouts

	// TLS is one of disable, true, skip-verify, preferred.
	TLS string `yaml:"tls"`

	FieldLimits FieldLimits `yaml:"field_limits"`
}

// Resolve merges explicit over the environment over the defaults.
// lookup is usually os.LookupEnv.
//
// Precedence per field: a non-zero explicit value wins; otherwise a set,
// non-empty environment variable; otherwise the default. Database has no
// default. Because an empty string means unset, an explicit empty Password
// cannot mask DB_PASSWORD.
func Resolve(explicit Config, lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	env := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	cfg := explicit

	if cfg.Driver == "" {
		cfg.Driver = Driver(strings.ToLower(env(EnvDriver)))
	}
	if cfg.Driver == "" {
		cfg.Driver = defaultDriver
	}
	dialect, ok := lookupDialect(cfg.Driver)
	if !ok {
		return Config{}, errs.Newf(errs.ErrKindConfig, "unknown database driver %q", cfg.Driver)
	}

	cfg.Host = firstString(cfg.Host, env(EnvHost), defaultHost)
	cfg.User = firstString(cfg.User, env(EnvUser), defaultUser)
	cfg.Password = firstString(cfg.Password, env(EnvPassword))
	cfg.Database = firstString(cfg.Database, env(EnvDatabase))

	var err error
	if cfg.Port, err = firstInt(cfg.Port, env(EnvPort), EnvPort, dialect.DefaultPort()); err != nil {
		return Config{}, err
	}
	if cfg.MaxConns, err = firstInt(cfg.MaxConns, env(EnvMaxConns), EnvMaxConns, defaultMaxConns); err != nil {
		return Config{}, err
	}
	if cfg.QueueLimit, err = firstInt(cfg.QueueLimit, env(EnvQueueLimit), EnvQueueLimit, defaultQueueLimit); err != nil {
		return Config{}, err
	}
	if cfg.AcquireTimeout, err = firstDuration(cfg.AcquireTimeout, env(EnvAcquireTimeout), EnvAcquireTimeout, defaultAcquireTimeout); err != nil {
		return Config{}, err
	}
	if cfg.QueryTimeout, err = firstDuration(cfg.QueryTimeout, env(EnvQueryTimeout), EnvQueryTimeout, defaultQueryTimeout); err != nil {
		return Config{}, err
	}
	cfg.ConnMaxLifetime = withDefault(cfg.ConnMaxLifetime, defaultConnMaxLifetime)
	cfg.ConnMaxIdleTime = withDefault(cfg.ConnMaxIdleTime, defaultConnMaxIdleTime)
	cfg.DrainTimeout = withDefault(cfg.DrainTimeout, defaultDrainTimeout)

	defaultTLS := TLSDisable
	if strings.EqualFold(env(EnvAppEnv), "production") {
		defaultTLS = TLSSkipVerify
	}
	cfg.TLS = strings.ToLower(firstString(cfg.TLS, env(EnvTLS), defaultTLS))

	if cfg.FieldLimits == nil {
		cfg.FieldLimits = DefaultFieldLimits()
	}

	if err := cfg.validate(dialect); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate(d Dialect) error {
	if d.RequiresHost() && c.Host == "" {
		return errs.New(errs.ErrKindConfig, "database host is required")
	}
	if c.Database == "" {
		return errs.New(errs.ErrKindConfig, "database name is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errs.Newf(errs.ErrKindConfig, "port %d out of range", c.Port)
	}
	if c.MaxConns < 1 {
		return errs.Newf(errs.ErrKindConfig, "max_conns must be positive, got %d", c.MaxConns)
	}
	if c.QueueLimit < 1 {
		return errs.Newf(errs.ErrKindConfig, "queue_limit must be positive, got %d", c.QueueLimit)
	}
	if c.AcquireTimeout < 0 || c.QueryTimeout < 0 || c.DrainTimeout < 0 {
		return errs.New(errs.ErrKindConfig, "timeouts must not be negative")
	}
	switch c.TLS {
	case TLSDisable, "false", TLSRequire, TLSSkipVerify, TLSPreferred:
	default:
		return errs.Newf(errs.ErrKindConfig, "unsupported tls mode %q", c.TLS)
	}
	for table, cols := range c.FieldLimits {
		for col, limit := range cols {
			if limit < 1 {
				return errs.Newf(errs.ErrKindConfig, "field limit for %s.%s must be positive", table, col)
			}
		}
	}
	return nil
}

// TLSEnabled reports whether the resolved TLS mode asks for encryption.
func (c *Config) TLSEnabled() bool {
	return c.TLS != "" && c.TLS != TLSDisable && c.TLS != "false"
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "xxxxx"
	}
	return c
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(explicit int, envVal, envKey string, def int) (int, error) {
	if explicit != 0 {
		return explicit, nil
	}
	if envVal != "" {
		n, err := strconv.Atoi(envVal)
		if err != nil {
			return 0, errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("invalid %s", envKey), err)
		}
		return n, nil
	}
	return def, nil
}

// firstDuration accepts Go duration strings ("30s") or plain milliseconds.
func firstDuration(explicit time.Duration, envVal, envKey string, def time.Duration) (time.Duration, error) {
	if explicit != 0 {
		return explicit, nil
	}
	if envVal == "" {
		return def, nil
	}
	d, err := parseDuration(envVal)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindConfig, fmt.Sprintf("invalid %s", envKey), err)
	}
	// Zero means unset, as it does for explicit values.
	if d == 0 {
		return def, nil
	}
	return d, nil
}

func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// withDefault returns val if non-zero, otherwise returns def
func withDefault(val, def time.Duration) time.Duration {
	if val == 0 {
		return def
	}
	return val
}
