package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/settlement-engine/pkg/logger"
	"github.com/angelmondragon/settlement-engine/pkg/metrics"
)

const defaultInterval = time.Hour

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service runs the registered jobs every Interval, one replica at a time.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	var jobs []Job
	if params.Registry != nil {
		jobs = params.Registry.Jobs()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run fires a cycle immediately and then on every tick until ctx ends.
// Failed cycles are logged and the loop carries on.
func (s *Service) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "cron cycle finished with errors", err)
			}
			timer.Reset(s.interval)
		}
	}
}

// RunOnce executes one cycle. Every job runs even if an earlier one fails;
// the returned error combines the failures. A cycle skipped because another
// replica holds the lock is not an error.
func (s *Service) RunOnce(ctx context.Context) error {
	var failures error
	ran, err := WithLock(ctx, s.lock, func(ctx context.Context) error {
		for _, job := range s.jobs {
			if err := s.runJob(ctx, job); err != nil {
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), err))
			}
		}
		return nil
	})
	if err != nil {
		return multierr.Append(failures, fmt.Errorf("cron lock: %w", err))
	}
	if !ran {
		s.logg.Info(ctx, "cron cycle skipped, lock held by another replica")
	}
	return failures
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	started := s.now()
	err := job.Run(ctx)
	took := s.now().Sub(started)
	s.metrics.Record(job.Name(), took, err, s.now())

	ctx = s.logg.WithField(ctx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "cron job failed", err)
		return err
	}
	s.logg.Info(ctx, "cron job completed")
	return nil
}
