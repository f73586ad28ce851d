package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/kingshoppers/storefront/pkg/logger"
	"github.com/kingshoppers/storefront/pkg/metrics"
)

const defaultInterval = time.Hour

// Job is one housekeeping task. Run reports how many rows it removed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Lock keeps replicas from running the same cycle twice.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type ServiceParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Metrics  *metrics.JanitorMetrics
	Interval time.Duration
	Jobs     []Job
}

// Service runs its jobs once at start and then on every tick.
type Service struct {
	logg     *logger.Logger
	lock     Lock
	metrics  *metrics.JanitorMetrics
	interval time.Duration
	jobs     []Job
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	jobs := make([]Job, 0, len(p.Jobs))
	for _, job := range p.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     p.Logger,
		lock:     p.Lock,
		metrics:  p.Metrics,
		interval: interval,
		jobs:     jobs,
	}, nil
}

// Run blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	s.cycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "janitor.cycle_failed", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "janitor.cycle_skipped")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "janitor.lock_release_failed", relErr)
		}
	}()

	for _, job := range s.jobs {
		s.runJob(ctx, job)
	}
	return nil
}

// runJob never stops the cycle; a failing job is logged and the next one runs.
func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	rows, err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(job.Name(), err, elapsed)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms":  elapsed.Milliseconds(),
		"rows_deleted": rows,
	})
	if err != nil {
		s.logg.Error(jobCtx, "janitor.job_failed", err)
		return
	}
	s.metrics.AddPurged(job.Name(), rows)
	s.logg.Info(jobCtx, "janitor.job_completed")
}
