package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/memvault/internal/logging"
)

// Passer runs one pass.
type Passer interface {
	RunPass(ctx context.Context) (*PassReport, error)
}

// Runner starts passes on a fixed interval and on demand.
type Runner struct {
	passer   Passer
	interval time.Duration
	trigger  chan struct{}
	log      logging.Logger
}

// NewRunner builds a runner. A zero interval disables the ticker, leaving
// only Trigger.
func NewRunner(p Passer, interval time.Duration, log logging.Logger) *Runner {
	return &Runner{
		passer:   p,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		log:      log.With("module", "runner"),
	}
}

// Trigger requests a pass without blocking. Requests made while one is
// already pending collapse into it.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done. Passes run one at a time on the caller's
// goroutine.
func (r *Runner) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			r.runOnce(ctx)
		case <-r.trigger:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if _, err := r.passer.RunPass(ctx); err != nil {
		if errors.Is(err, ErrPassRunning) || errors.Is(err, context.Canceled) {
			r.log.Info(ctx, "pass skipped", "reason", err)
			return
		}
		r.log.Error(ctx, "pass failed", "error", err)
	}
}
