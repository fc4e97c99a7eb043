// Package cleanup runs periodic housekeeping on a cron schedule.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type LimiterPruner interface {
	Cleanup() int
}

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPruner
	limiter  LimiterPruner
	timeout  time.Duration
	logger   *slog.Logger
}

// New schedules the cleanup job. schedule is a standard five-field cron
// expression or a descriptor such as "@hourly".
func New(schedule string, sessions SessionPruner, limiter LimiterPruner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		limiter:  limiter,
		timeout:  time.Minute,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce deletes expired sessions and stale rate-limit windows.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("delete expired sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("deleted expired sessions", "count", n)
	}

	if removed := s.limiter.Cleanup(); removed > 0 {
		s.logger.Debug("pruned rate limiter", "count", removed)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Add schedules another job on the same cron, each run bounded by timeout.
// A non-positive timeout means the housekeeping default of one minute. Its
// error is logged, not retried.
func (s *Scheduler) Add(schedule, name string, timeout time.Duration, job func(ctx context.Context) error) error {
	timeout = s.jobTimeout(timeout)
	_, err := s.cron.AddFunc(schedule, func() {
		s.runJob(name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, schedule, err)
	}
	return nil
}

func (s *Scheduler) jobTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return s.timeout
	}
	return d
}

func (s *Scheduler) runJob(name string, timeout time.Duration, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := job(ctx); err != nil {
		s.logger.Error("scheduled job failed", "job", name, "error", err)
	}
}
