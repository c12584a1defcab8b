package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tabula/internal/database"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tabula.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:8080"
  read_timeout: 5s
  messages_table: guestbook
logging:
  level: debug
  format: console
database:
  driver: postgres
  host: pg.internal
  database: tabula
  max_conns: 4
  acquire_timeout: 2s
  field_limits:
    guestbook:
      content: 500
downloads:
  endpoint: "localhost:9000"
  access_key: minioadmin
  secret_key: minioadmin
  bucket: downloads
`)

	cfg, err := load(path, env(nil))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, "guestbook", cfg.Server.MessagesTable)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Database.MaxConns)
	assert.Equal(t, 2*time.Second, cfg.Database.AcquireTimeout)
	assert.Equal(t, 500, cfg.Database.FieldLimits["guestbook"]["content"])
	assert.True(t, cfg.Downloads.Enabled())
	assert.Equal(t, "downloads", cfg.Downloads.Bucket)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "comments", cfg.Server.MessagesTable)
	assert.False(t, cfg.Downloads.Enabled())
	assert.Empty(t, cfg.Database.Driver, "database defaults are left to the pool")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load("/nonexistent/path/tabula.yaml", env(nil))
	require.Error(t, err)
	assert.True(t, Optional(err))
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := load(writeConfig(t, "server: [unclosed"), env(nil))
	require.Error(t, err)
	assert.False(t, Optional(err))
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	cfg, err := load(path, env(map[string]string{
		EnvAddr:              ":7000",
		EnvLogLevel:          "warn",
		EnvDownloadEndpoint:  "s3.internal:9000",
		EnvDownloadBucket:    "files",
		EnvDownloadAccessKey: "ak",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "s3.internal:9000", cfg.Downloads.Endpoint)
	assert.Equal(t, "files", cfg.Downloads.Bucket)
	assert.Equal(t, "ak", cfg.Downloads.AccessKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"unsafe messages table", func(c *Config) { c.Server.MessagesTable = "comments; --" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"downloads without bucket", func(c *Config) { c.Downloads.Endpoint = "localhost:9000" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "console", lc.Format)
}
