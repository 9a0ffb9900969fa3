package cron

import (
	"context"
	"errors"
	"time"

	"github.com/convexa-app/backoffice-backend/pkg/logger"
	"github.com/convexa-app/backoffice-backend/pkg/metrics"
)

// Sweeps run several times a day so an invoice is never overdue for long
// before its status says so.
const defaultSweepInterval = 6 * time.Hour

// WorkerParams configure the billing maintenance worker.
type WorkerParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Worker runs the registered billing maintenance jobs on a fixed cadence,
// holding the replica lock for the duration of each cycle.
type Worker struct {
	log      *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

// NewWorker builds a worker from its parts.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Lock == nil {
		return nil, errors.New("replica lock is required")
	}
	if params.Registry == nil {
		params.Registry = NewRegistry()
	}
	if params.Interval <= 0 {
		params.Interval = defaultSweepInterval
	}
	return &Worker{
		log:      params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}, nil
}

// Run executes a cycle immediately, then one per interval, until the context
// is canceled. A fresh deploy must not wait a full interval before its first
// sweep.
func (w *Worker) Run(ctx context.Context) error {
	for {
		w.cycle(ctx)
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "billing maintenance worker stopping")
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) cycle(ctx context.Context) {
	held, err := w.lock.TryAcquire(ctx)
	if err != nil {
		w.log.Error(ctx, "replica lock unavailable, skipping cycle", err)
		return
	}
	if !held {
		w.log.Info(ctx, "another replica holds the lock, skipping cycle")
		return
	}
	defer func() {
		if err := w.lock.Release(ctx); err != nil {
			w.log.Error(ctx, "failed to release replica lock", err)
		}
	}()

	for _, job := range w.registry.Jobs() {
		w.runJob(ctx, job)
	}
}

// runJob never lets one job's failure stop the rest of the cycle.
func (w *Worker) runJob(ctx context.Context, job Job) {
	jobCtx := w.log.WithField(ctx, "job", job.Name())
	started := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(started)

	w.metrics.ObserveRun(job.Name(), elapsed, err)

	jobCtx = w.log.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		w.log.Error(jobCtx, "billing maintenance job failed", err)
		return
	}
	w.log.Info(jobCtx, "billing maintenance job finished")
}
