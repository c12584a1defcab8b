package database

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/tabula/internal/errs"
)

func openFakePool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	cfg.Driver = fakeServer.name
	p := New(WithEnv(envOf(nil)))
	require.NoError(t, p.Init(context.Background(), cfg))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

// hold checks out a connection and keeps it until release is closed.
func hold(p *Pool, release <-chan struct{}) (held <-chan struct{}, done <-chan error) {
	h := make(chan struct{})
	d := make(chan error, 1)
	go func() {
		d <- p.withConn(context.Background(), "hold", func(context.Context, *sql.Conn) error {
			close(h)
			<-release
			return nil
		})
	}()
	return h, d
}

func TestPool_BusySlotIsPoolExhausted(t *testing.T) {
	p := openFakePool(t, Config{
		Database:       "exhausted",
		MaxConns:       1,
		AcquireTimeout: 50 * time.Millisecond,
	})

	release := make(chan struct{})
	held, done := hold(p, release)
	<-held

	err := p.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPoolExhausted(err), "got %v", err)

	close(release)
	require.NoError(t, <-done)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPool_CloseWaitsForInFlight(t *testing.T) {
	p := openFakePool(t, Config{Database: "drain", MaxConns: 1, DrainTimeout: 5 * time.Second})

	release := make(chan struct{})
	held, done := hold(p, release)
	<-held

	closed := make(chan error, 1)
	go func() { closed <- p.Close(context.Background()) }()

	select {
	case err := <-closed:
		t.Fatalf("Close returned %v while an operation was in flight", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done, "in-flight operation must complete")
	require.NoError(t, <-closed)

	err := p.Ping(context.Background())
	assert.True(t, errs.IsNotInitialized(err), "got %v", err)
}

func TestPool_CloseForcesAfterDrainTimeout(t *testing.T) {
	p := openFakePool(t, Config{Database: "force", MaxConns: 1, DrainTimeout: 50 * time.Millisecond})

	release := make(chan struct{})
	held, done := hold(p, release)
	<-held

	start := time.Now()
	require.NoError(t, p.Close(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)

	err := p.Ping(context.Background())
	assert.True(t, errs.IsNotInitialized(err), "got %v", err)

	close(release)
	<-done
}

func TestPool_OperationsFailFastDuringInit(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	setPingHook("slow-init", func(ctx context.Context) error {
		once.Do(func() { close(entered) })
		select {
		case <-unblock:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	p := New(WithEnv(envOf(nil)))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	cfg := Config{Driver: fakeServer.name, Database: "slow-init"}
	initDone := make(chan error, 1)
	go func() { initDone <- p.Init(context.Background(), cfg) }()
	<-entered

	start := time.Now()
	_, err := p.ListTables(context.Background())
	assert.True(t, errs.IsNotInitialized(err), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)

	err = p.Init(context.Background(), cfg)
	assert.True(t, errs.IsAlreadyInitialized(err), "got %v", err)

	close(unblock)
	require.NoError(t, <-initDone)
	assert.NoError(t, p.Ping(context.Background()))
}

func TestPool_CloseDuringInit(t *testing.T) {
	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	setPingHook("closed-init", func(context.Context) error {
		once.Do(func() { close(entered) })
		<-unblock
		return nil
	})

	p := New(WithEnv(envOf(nil)))
	initDone := make(chan error, 1)
	go func() {
		initDone <- p.Init(context.Background(), Config{Driver: fakeServer.name, Database: "closed-init"})
	}()
	<-entered

	require.NoError(t, p.Close(context.Background()))
	close(unblock)

	err := <-initDone
	assert.True(t, errs.IsNotInitialized(err), "got %v", err)
	assert.True(t, errs.IsNotInitialized(p.Ping(context.Background())))
}

func TestPool_FailedInitCanRetry(t *testing.T) {
	setPingHook("flaky", func(context.Context) error { return sql.ErrConnDone })

	p := New(WithEnv(envOf(nil)))
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	cfg := Config{Driver: fakeServer.name, Database: "flaky"}

	err := p.Init(context.Background(), cfg)
	assert.True(t, errs.IsConnection(err), "got %v", err)

	setPingHook("flaky", func(context.Context) error { return nil })
	require.NoError(t, p.Init(context.Background(), cfg))
}
