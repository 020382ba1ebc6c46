package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// ServiceParams configure a maintenance service.
type ServiceParams struct {
	Name     string
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.MaintenanceMetrics
	Interval time.Duration
}

// Service runs its registered jobs on a fixed cadence until its context ends.
type Service struct {
	name     string
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.MaintenanceMetrics
	interval time.Duration
	now      func() time.Time
}

// NewService builds a maintenance service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	name := params.Name
	if name == "" {
		name = "maintenance"
	}
	return &Service{
		name:     name,
		logg:     params.Logger,
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run ticks until ctx is canceled. The first cycle waits one interval; nothing is
// stale at boot.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "maintenance", s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "maintenance.start")
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "maintenance.stop")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logg.Error(ctx, "maintenance.cycle_failed", err)
			}
		}
	}
}

// RunOnce executes every job once under the lock. Job failures are logged and
// counted; only lock errors are returned.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Debug(ctx, "maintenance.skipped_locked")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "maintenance.lock_release_failed", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return nil
		}
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "maintenance.job",
	})
	start := s.now()
	removed, err := job.Run(jobCtx)
	duration := s.now().Sub(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": duration.Milliseconds(),
		"removed":     removed,
	})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.metrics.AddRemoved(job.Name(), removed)
	s.metrics.IncSuccess(job.Name())
	if removed > 0 {
		s.logg.Info(jobCtx, "job completed")
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}
