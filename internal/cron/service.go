package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/supplydesk-backend/pkg/logger"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 5 * time.Minute
)

type jobObserver interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  jobObserver
	Interval time.Duration
	// JobTimeout bounds each job run. It should stay below the lock TTL.
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding the
// cluster lock.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	observer   jobObserver
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("cron: logger required")
	case p.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	s := &Service{
		logg:       p.Logger,
		jobs:       p.Registry,
		lock:       p.Lock,
		observer:   p.Metrics,
		interval:   p.Interval,
		jobTimeout: p.JobTimeout,
	}
	if s.jobs == nil {
		s.jobs = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run starts a cycle right away and then once per interval until ctx is done.
// A ctx canceled before the first cycle runs no jobs.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce is a no-op when another replica holds the lock. Jobs run in
// registration order and one failure does not skip the rest.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !acquired {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() { err = multierr.Append(err, s.lock.Release(context.WithoutCancel(ctx))) }()

	for _, job := range s.jobs.Jobs() {
		if ctx.Err() != nil {
			return multierr.Append(err, ctx.Err())
		}
		err = multierr.Append(err, s.runJob(ctx, job))
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})

	start := time.Now()
	err := s.execute(jobCtx, job)
	elapsed := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())

	if s.observer != nil {
		s.observer.ObserveDuration(name, elapsed)
		if err != nil {
			s.observer.IncFailure(name)
		} else {
			s.observer.IncSuccess(name)
		}
	}
	if err != nil {
		s.logg.Error(jobCtx, "cron job failed", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	s.logg.Info(jobCtx, "cron job completed")
	return nil
}

// execute runs job under the job timeout and reports a panic as an error.
func (s *Service) execute(ctx context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}
