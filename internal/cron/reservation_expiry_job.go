package cron

import (
	"context"
	"fmt"

	"github.com/openshelf/circulation-backend/pkg/logger"
	"github.com/openshelf/circulation-backend/pkg/metrics"
)

// ExpiredReservationSweeper cancels reservations past their expiration date
// and reports how many were swept.
type ExpiredReservationSweeper interface {
	ProcessExpired(ctx context.Context) (int, error)
}

// ReservationExpiryJobParams configure the expiry sweep job.
type ReservationExpiryJobParams struct {
	Logger  *logger.Logger
	Sweeper ExpiredReservationSweeper
	Metrics *metrics.CronJobMetrics
}

// NewReservationExpiryJob builds the job that sweeps expired reservations.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("reservation sweeper required")
	}
	return &reservationExpiryJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
	}, nil
}

type reservationExpiryJob struct {
	logg    *logger.Logger
	sweeper ExpiredReservationSweeper
	metrics *metrics.CronJobMetrics
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

// Run sweeps expired reservations. A partial failure still records the count
// that was swept before surfacing the error; the sweeper itself continues
// past individual failed items.
func (j *reservationExpiryJob) Run(ctx context.Context) error {
	swept, err := j.sweeper.ProcessExpired(ctx)
	if swept > 0 {
		j.recordSwept(swept)
	}
	logCtx := j.logg.WithField(ctx, "swept", swept)
	if err != nil {
		j.logg.Error(logCtx, "expired reservation sweep finished with failures", err)
		return fmt.Errorf("sweep expired reservations: %w", err)
	}
	j.logg.Info(logCtx, "expired reservation sweep complete")
	return nil
}

func (j *reservationExpiryJob) recordSwept(count int) {
	if j.metrics == nil {
		return
	}
	j.metrics.AddSwept(j.Name(), count)
}
