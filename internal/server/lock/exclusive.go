// Package lock provides the single process-wide lock serialising registry
// mutations between the event path and scheduled passes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/memvault/internal/common"
)

// DefaultWait is how long Acquire waits before giving up.
const DefaultWait = 30 * time.Second

type Exclusive struct {
	sem  *semaphore.Weighted
	wait time.Duration
}

func NewExclusive(wait time.Duration) *Exclusive {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Exclusive{sem: semaphore.NewWeighted(1), wait: wait}
}

// Acquire waits at most the configured duration for the lock. It returns
// an error wrapping common.ErrLockTimeout when the wait expires, or the
// context error when ctx ends first. On success the returned func
// releases the lock.
func (l *Exclusive) Acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("waited %s: %w", l.wait, common.ErrLockTimeout)
		}
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}
