package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tabula/internal/database"
	"github.com/koustreak/tabula/internal/errs"
)

func TestDSN(t *testing.T) {
	cfg := &database.Config{
		Host:           "pg.internal",
		User:           "app",
		Password:       "s3cr/t@x",
		Database:       "guestbook",
		AcquireTimeout: 7 * time.Second,
	}

	dsn, err := Dialect{}.DSN(cfg)
	require.NoError(t, err)

	parsed, err := pgx.ParseConfig(dsn)
	require.NoError(t, err)
	assert.Equal(t, "pg.internal", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "s3cr/t@x", parsed.Password)
	assert.Equal(t, "guestbook", parsed.Database)
	assert.Equal(t, 7*time.Second, parsed.ConnectTimeout)
	assert.Nil(t, parsed.TLSConfig)
}

func TestSSLMode(t *testing.T) {
	tests := []struct {
		tls  string
		want string
	}{
		{"", "disable"},
		{database.TLSDisable, "disable"},
		{database.TLSRequire, "require"},
		{database.TLSSkipVerify, "require"},
		{database.TLSPreferred, "prefer"},
	}
	for _, tt := range tests {
		t.Run(tt.tls, func(t *testing.T) {
			got, err := sslMode(tt.tls)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := sslMode("sometimes")
	assert.Error(t, err)
}

func TestQuoteAndPlaceholder(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, `"comments"`, d.QuoteIdent("comments"))
	assert.Equal(t, "$1", d.Placeholder(1))
	assert.Equal(t, "$12", d.Placeholder(12))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want errs.ErrKind
	}{
		{"42P01", errs.ErrKindNoSuchTable},
		{"42701", errs.ErrKindColumnAlreadyExists},
		{"23505", errs.ErrKindDuplicateEntry},
		{"28P01", errs.ErrKindAccessDenied},
		{"42501", errs.ErrKindAccessDenied},
		{"08006", errs.ErrKindConnection},
		{"08001", errs.ErrKindConnection},
		{"3D000", errs.ErrKindConnection},
		{"53300", errs.ErrKindConnection},
		{"23502", errs.ErrKindValidation},
		{"22001", errs.ErrKindValidation},
		{"42601", errs.ErrKindQuery},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code, Message: "x"})
			kind, ok := Dialect{}.Classify(err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassify_ThroughDatabase(t *testing.T) {
	err := database.Classify(Dialect{}, &pgconn.PgError{Code: "23505", Message: "duplicate key"}, "insert data")
	assert.True(t, errs.IsDuplicateEntry(err))
	assert.Contains(t, err.Error(), "insert data")
}

func TestClassify_Foreign(t *testing.T) {
	_, ok := Dialect{}.Classify(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, database.Dialects(), "postgres")
}
