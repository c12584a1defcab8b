package database

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/koustreak/tabula/internal/errs"
)

// gate bounds concurrent connection checkouts.
//
// size callers may hold a slot at once; at most queueLimit more may wait
// for one. Waiting is bounded by the acquire timeout. database/sql alone
// would block until the caller's context expires and has no queue bound.
type gate struct {
	sem        *semaphore.Weighted
	size       int64
	queueLimit int64
	waiting    atomic.Int64
	inFlight   atomic.Int64
}

func newGate(size, queueLimit int) *gate {
	return &gate{
		sem:        semaphore.NewWeighted(int64(size)),
		size:       int64(size),
		queueLimit: int64(queueLimit),
	}
}

// acquire takes one slot. It fails with PoolExhausted when the queue is
// full or no slot frees up within timeout, and with QueryError when ctx is
// cancelled by the caller first.
func (g *gate) acquire(ctx context.Context, timeout time.Duration) error {
	if g.sem.TryAcquire(1) {
		g.inFlight.Add(1)
		return nil
	}

	if g.waiting.Add(1) > g.queueLimit {
		g.waiting.Add(-1)
		return errs.Newf(errs.ErrKindPoolExhausted, "connection queue is full (%d waiting)", g.queueLimit)
	}
	defer g.waiting.Add(-1)

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return errs.Wrap(errs.ErrKindQuery, "request cancelled while waiting for a connection", ctx.Err())
		}
		return errs.Wrap(errs.ErrKindPoolExhausted, "timed out waiting for a connection", err)
	}
	g.inFlight.Add(1)
	return nil
}

func (g *gate) release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

// drain reclaims every slot, waiting for in-flight checkouts to come back.
// It returns false when ctx expires first; nothing is held in that case.
func (g *gate) drain(ctx context.Context) bool {
	return g.sem.Acquire(ctx, g.size) == nil
}

// reopen hands back the slots taken by a successful drain so that callers
// still queued wake up and observe the closed pool.
func (g *gate) reopen() {
	g.sem.Release(g.size)
}

func (g *gate) stats() (inFlight, waiting int64) {
	return g.inFlight.Load(), g.waiting.Load()
}
