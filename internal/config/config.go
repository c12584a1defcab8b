// Package config loads tabula's process configuration.
//
// Values are layered: built-in defaults, then the YAML file, then TABULA_*
// environment variables, and the result is validated. The database section
// is the explicit layer of database.Resolve; the DB_* variables are applied
// later by the pool itself.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/filestore"
	"github.com/koustreak/tabula/internal/logger"
)

// Environment variables consulted by Load.
const (
	EnvAddr      = "TABULA_ADDR"
	EnvLogLevel  = "TABULA_LOG_LEVEL"
	EnvLogFormat = "TABULA_LOG_FORMAT"

	EnvDownloadEndpoint  = "TABULA_DOWNLOAD_ENDPOINT"
	EnvDownloadAccessKey = "TABULA_DOWNLOAD_ACCESS_KEY"
	EnvDownloadSecretKey = "TABULA_DOWNLOAD_SECRET_KEY"
	EnvDownloadBucket    = "TABULA_DOWNLOAD_BUCKET"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Database  database.Config  `yaml:"database"`
	Downloads filestore.Config `yaml:"downloads"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MessagesTable receives POST /api/message submissions.
	MessagesTable string `yaml:"messages_table"`

	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults. Database fields stay
// zero so that database.Resolve can fill them from DB_* variables.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MessagesTable:   "comments",
			MaxBodyBytes:    1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(EnvAddr, &cfg.Server.Addr)
	set(EnvLogLevel, &cfg.Logging.Level)
	set(EnvLogFormat, &cfg.Logging.Format)
	set(EnvDownloadEndpoint, &cfg.Downloads.Endpoint)
	set(EnvDownloadAccessKey, &cfg.Downloads.AccessKey)
	set(EnvDownloadSecretKey, &cfg.Downloads.SecretKey)
	set(EnvDownloadBucket, &cfg.Downloads.Bucket)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var problems []error

	if c.Server.Addr == "" {
		problems = append(problems, errors.New("server.addr is required"))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		problems = append(problems, errors.New("server timeouts must not be negative"))
	}
	if c.Server.MaxBodyBytes < 1 {
		problems = append(problems, errors.New("server.max_body_bytes must be positive"))
	}
	if _, err := database.ValidateIdentifier(c.Server.MessagesTable); err != nil {
		problems = append(problems, fmt.Errorf("server.messages_table: %w", err))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Errorf("logging.format %q is not json or console", c.Logging.Format))
	}

	if c.Downloads.Enabled() {
		if err := c.Downloads.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("downloads: %w", err))
		}
	}

	return errors.Join(problems...)
}

// LoggerConfig converts the logging section for logger.New.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	return lc
}

// Optional reports whether err means the config file was simply absent.
func Optional(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
