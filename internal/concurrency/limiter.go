// Package concurrency bounds how many playbook subprocesses an
// Executor will have running at once. It is a plain counting
// semaphore, not a general resource-protection framework: the driver
// only ever needs "block until a slot is free, or ctx gives up first."
package concurrency

import (
	"context"
	"fmt"
)

// Limiter allows up to max callers to hold a slot concurrently.
type Limiter struct {
	slots chan struct{}
}

// New creates a Limiter allowing up to max concurrent slots. max must
// be positive.
func New(max int) (*Limiter, error) {
	if max <= 0 {
		return nil, fmt.Errorf("concurrency: max must be positive, got %d", max)
	}
	return &Limiter{slots: make(chan struct{}, max)}, nil
}

// Acquire blocks until a slot is free or ctx is done, whichever comes
// first. On success it returns a func that frees the slot; callers
// must call it exactly once. On ctx cancellation it returns ctx.Err()
// and a nil release func.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
