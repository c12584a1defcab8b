package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tabula/internal/errs"
)

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(Config{Driver: "fakeserver", Database: "guestbook"}, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, "root", cfg.User)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, 10, cfg.MaxConns)
	assert.Equal(t, 50, cfg.QueueLimit)
	assert.Equal(t, 60*time.Second, cfg.AcquireTimeout)
	assert.Equal(t, 60*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 10*time.Minute, cfg.ConnMaxIdleTime)
	assert.Equal(t, 10*time.Second, cfg.DrainTimeout)
	assert.Equal(t, TLSDisable, cfg.TLS)
	assert.False(t, cfg.TLSEnabled())
	assert.Equal(t, 255, cfg.FieldLimits["comments"]["title"])
	assert.Equal(t, 1000, cfg.FieldLimits["comments"]["content"])
}

func TestResolve_Environment(t *testing.T) {
	env := envOf(map[string]string{
		EnvDriver:         "FakeServer",
		EnvHost:           "db.internal",
		EnvPort:           "4406",
		EnvUser:           "app",
		EnvPassword:       "secret",
		EnvDatabase:       "shop",
		EnvMaxConns:       "4",
		EnvQueueLimit:     "8",
		EnvAcquireTimeout: "1500",
		EnvQueryTimeout:   "2s",
		EnvTLS:            "true",
	})

	cfg, err := Resolve(Config{}, env)
	require.NoError(t, err)

	assert.Equal(t, Driver("fakeserver"), cfg.Driver)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 4406, cfg.Port)
	assert.Equal(t, "app", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "shop", cfg.Database)
	assert.Equal(t, 4, cfg.MaxConns)
	assert.Equal(t, 8, cfg.QueueLimit)
	assert.Equal(t, 1500*time.Millisecond, cfg.AcquireTimeout)
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
	assert.True(t, cfg.TLSEnabled())
}

func TestResolve_ZeroEnvTimeoutsUseDefaults(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"milliseconds", map[string]string{EnvAcquireTimeout: "0", EnvQueryTimeout: "0"}},
		{"duration", map[string]string{EnvAcquireTimeout: "0s", EnvQueryTimeout: "0ms"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(Config{Driver: "fakeserver", Database: "d"}, envOf(tt.env))
			require.NoError(t, err)
			assert.Equal(t, 60*time.Second, cfg.AcquireTimeout)
			assert.Equal(t, 60*time.Second, cfg.QueryTimeout)
		})
	}
}

func TestResolve_ExplicitWins(t *testing.T) {
	env := envOf(map[string]string{
		EnvHost:     "from-env",
		EnvDatabase: "from-env",
		EnvMaxConns: "99",
	})

	cfg, err := Resolve(Config{Driver: "fakeserver", Host: "explicit", Database: "explicit", MaxConns: 3}, env)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Host)
	assert.Equal(t, "explicit", cfg.Database)
	assert.Equal(t, 3, cfg.MaxConns)
}

func TestResolve_ProductionDefaultsToTLS(t *testing.T) {
	cfg, err := Resolve(Config{Driver: "fakeserver", Database: "d"}, envOf(map[string]string{EnvAppEnv: "production"}))
	require.NoError(t, err)
	assert.Equal(t, TLSSkipVerify, cfg.TLS)

	cfg, err = Resolve(Config{Driver: "fakeserver", Database: "d", TLS: TLSDisable}, envOf(map[string]string{EnvAppEnv: "production"}))
	require.NoError(t, err)
	assert.Equal(t, TLSDisable, cfg.TLS)
}

func TestResolve_FileDialect(t *testing.T) {
	cfg, err := Resolve(Config{Driver: "fakefile", Database: "/tmp/x.db"}, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Port)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		env  map[string]string
	}{
		{"missing database", Config{Driver: "fakeserver"}, nil},
		{"unknown driver", Config{Driver: "oracle", Database: "d"}, nil},
		{"bad port", Config{Driver: "fakeserver", Database: "d"}, map[string]string{EnvPort: "abc"}},
		{"port out of range", Config{Driver: "fakeserver", Database: "d", Port: 70000}, nil},
		{"bad limit", Config{Driver: "fakeserver", Database: "d"}, map[string]string{EnvMaxConns: "ten"}},
		{"negative limit", Config{Driver: "fakeserver", Database: "d", MaxConns: -1}, nil},
		{"bad timeout", Config{Driver: "fakeserver", Database: "d"}, map[string]string{EnvQueryTimeout: "soon"}},
		{"negative env timeout", Config{Driver: "fakeserver", Database: "d"}, map[string]string{EnvAcquireTimeout: "-5"}},
		{"negative timeout", Config{Driver: "fakeserver", Database: "d", QueryTimeout: -time.Second}, nil},
		{"bad tls", Config{Driver: "fakeserver", Database: "d", TLS: "always"}, nil},
		{"bad field limit", Config{Driver: "fakeserver", Database: "d", FieldLimits: FieldLimits{"t": {"c": 0}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.cfg, envOf(tt.env))
			require.Error(t, err)
			assert.True(t, errs.IsConfig(err), "got %v", err)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Config{Password: "hunter2"}
	assert.Equal(t, "xxxxx", cfg.Redacted().Password)
	assert.Equal(t, "hunter2", cfg.Password)
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() { Register(fakeFile) })
	assert.Panics(t, func() { Register(nil) })
	assert.Contains(t, Dialects(), "fakefile")
}
