// Package gate bounds how many calls may be in flight against an external provider at once.
package gate

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

type Gate struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
	observe  func(inFlight int)
}

// New returns a gate admitting at most size concurrent calls. size below 1 is treated as 1.
func New(size int) *Gate {
	if size < 1 {
		size = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

func (g *Gate) Size() int {
	return int(g.size)
}

// Observe registers fn to be called with the in-flight count whenever it changes.
// Call it before the gate is shared.
func (g *Gate) Observe(fn func(inFlight int)) {
	g.observe = fn
}

// InFlight reports how many calls currently hold a slot.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Do waits for a free slot, runs fn and releases the slot. Waiting callers are admitted in FIFO order.
// If ctx ends while waiting, fn is never run and ctx.Err() is returned.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.report(g.inFlight.Add(1))
	defer func() {
		g.report(g.inFlight.Add(-1))
		g.sem.Release(1)
	}()
	return fn(ctx)
}

func (g *Gate) report(n int64) {
	if g.observe != nil {
		g.observe(int(n))
	}
}
