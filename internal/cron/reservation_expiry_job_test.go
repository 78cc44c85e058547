package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/openshelf/circulation-backend/pkg/logger"
)

type fakeSweeper struct {
	swept int
	err   error
	calls int
}

func (f *fakeSweeper) ProcessExpired(context.Context) (int, error) {
	f.calls++
	return f.swept, f.err
}

func TestReservationExpiryJobRun(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	sweeper := &fakeSweeper{swept: 3}
	job, err := NewReservationExpiryJob(ReservationExpiryJobParams{Logger: logg, Sweeper: sweeper})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.Name() != "reservation-expiry" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep call, got %d", sweeper.calls)
	}
}

func TestReservationExpiryJobSurfacesSweepFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	sweeper := &fakeSweeper{swept: 1, err: errors.New("boom")}
	job, err := NewReservationExpiryJob(ReservationExpiryJobParams{Logger: logg, Sweeper: sweeper})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep failure to propagate")
	}
}

func TestNewReservationExpiryJobValidatesDeps(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	if _, err := NewReservationExpiryJob(ReservationExpiryJobParams{Sweeper: &fakeSweeper{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewReservationExpiryJob(ReservationExpiryJobParams{Logger: logg}); err == nil {
		t.Fatal("expected error without sweeper")
	}
}
