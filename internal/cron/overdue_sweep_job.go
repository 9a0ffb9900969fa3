package cron

import (
	"context"
	"errors"

	"github.com/convexa-app/backoffice-backend/pkg/logger"
)

// OverdueSweeper persists the overdue flip for invoices past their grace
// period.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// OverdueSweepJobParams configure the overdue sweep job.
type OverdueSweepJobParams struct {
	Logger   *logger.Logger
	Invoices OverdueSweeper
}

// OverdueSweepJob marks pending invoices overdue once their grace period has
// elapsed. The flip is idempotent, so overlapping runs are harmless.
type OverdueSweepJob struct {
	logg     *logger.Logger
	invoices OverdueSweeper
}

// NewOverdueSweepJob builds the overdue sweep job.
func NewOverdueSweepJob(params OverdueSweepJobParams) (*OverdueSweepJob, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Invoices == nil {
		return nil, errors.New("invoice sweeper required")
	}
	return &OverdueSweepJob{
		logg:     params.Logger,
		invoices: params.Invoices,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *OverdueSweepJob) Name() string { return "invoice_overdue_sweep" }

// Run flips every pending invoice whose due date passed.
func (j *OverdueSweepJob) Run(ctx context.Context) error {
	flipped, err := j.invoices.SweepOverdue(ctx)
	if err != nil {
		return err
	}
	ctx = j.logg.WithField(ctx, "flipped", flipped)
	j.logg.Info(ctx, "overdue sweep finished")
	return nil
}
