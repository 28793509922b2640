// Package worker runs the periodic reconciliation pass that moves
// reservations through time: due activations, overdue expiries and audit
// log retention.
package worker

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"resource-reservation-backend/internal/clock"
	"resource-reservation-backend/internal/metrics"
)

// minInterval keeps a misconfigured interval from hammering the database.
const minInterval = 15 * time.Second

// Scheduler is the slice of the scheduling service the reconciler drives.
type Scheduler interface {
	ActivateDue(ctx context.Context, now time.Time) ([]int64, error)
	ExpireOverdue(ctx context.Context, now time.Time) ([]int64, error)
}

// AuditPurger trims audit entries older than a cutoff.
type AuditPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reconciler periodically advances reservation state.
type Reconciler struct {
	scheduler Scheduler
	purger    AuditPurger
	clock     clock.Clock
	interval  time.Duration
	retention time.Duration
	running   atomic.Bool
}

// New creates a reconciler ticking at the given interval. Retention bounds
// the age of kept audit entries; zero disables purging.
func New(sched Scheduler, purger AuditPurger, clk clock.Clock, interval, retention time.Duration) *Reconciler {
	if interval < minInterval {
		interval = minInterval
	}
	return &Reconciler{
		scheduler: sched,
		purger:    purger,
		clock:     clk,
		interval:  interval,
		retention: retention,
	}
}

// Run blocks until ctx is cancelled, reconciling once immediately and then
// on every tick.
func (r *Reconciler) Run(ctx context.Context) {
	log.Printf("worker: reconciling every %s", r.interval)

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	r.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker: stopped")
			return
		case <-timer.C:
		}
		r.RunOnce(ctx)
		timer.Reset(r.interval)
	}
}

// RunOnce performs a single reconciliation pass. Passes never overlap: if
// the previous one is still running the call is skipped, so a slow database
// cannot pile up concurrent transitions. Each step takes a fresh clock
// reading and failures in one step do not stop the next.
func (r *Reconciler) RunOnce(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		log.Printf("worker: previous pass still running, skipping")
		return
	}
	defer r.running.Store(false)

	metrics.ReconcileRuns.Inc()

	if ids, err := r.scheduler.ActivateDue(ctx, r.clock.Now()); err != nil {
		metrics.ReconcileFailures.Inc()
		log.Printf("worker: activation pass failed: %v", err)
	} else if len(ids) > 0 {
		log.Printf("worker: activated %d reservation(s)", len(ids))
	}

	if ids, err := r.scheduler.ExpireOverdue(ctx, r.clock.Now()); err != nil {
		metrics.ReconcileFailures.Inc()
		log.Printf("worker: expiry pass failed: %v", err)
	} else if len(ids) > 0 {
		log.Printf("worker: expired %d reservation(s)", len(ids))
	}

	if r.purger != nil && r.retention > 0 {
		cutoff := r.clock.Now().Add(-r.retention)
		if n, err := r.purger.Purge(ctx, cutoff); err != nil {
			log.Printf("worker: audit purge failed: %v", err)
		} else if n > 0 {
			log.Printf("worker: purged %d audit rows", n)
		}
	}
}
