// Package scheduler runs the tracker's background jobs on gocron.
//
// JOBS:
//
//	close-expired   every Interval  → stop submissions on challenges whose month ended
//	ensure-monthly  daily 00:00:05  → open this month's challenge if none exists
//	                                  (only with AutoCreate)
//
// Both run once immediately at Start and are idempotent, so a restart or a
// missed tick is harmless. Singleton mode keeps a slow run from overlapping
// the next one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/sakif/challenge-tracker/internal/metrics"
	"github.com/sakif/challenge-tracker/internal/model"
)

const (
	JobCloseExpired  = "close-expired"
	JobEnsureMonthly = "ensure-monthly"

	// runTimeout bounds a single job run.
	runTimeout = time.Minute
)

// Challenges is the part of service.ChallengeService the jobs need.
type Challenges interface {
	CloseExpired(ctx context.Context) (int, error)
	EnsureMonthly(ctx context.Context) (*model.Challenge, bool, error)
}

type Config struct {
	Interval   time.Duration
	AutoCreate bool
	Location   *time.Location
}

type job struct {
	name string
	def  gocron.JobDefinition
	run  func(context.Context) error
}

type Scheduler struct {
	sched      gocron.Scheduler
	challenges Challenges
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the jobs. Nothing runs until Start.
func New(challenges Challenges, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("scheduler: creating: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sched:      sched,
		challenges: challenges,
		logger:     logger.With(slog.String("component", "scheduler")),
		ctx:        ctx,
		cancel:     cancel,
	}

	jobs := []job{
		{JobCloseExpired, gocron.DurationJob(cfg.Interval), s.CloseExpired},
	}
	if cfg.AutoCreate {
		jobs = append(jobs, job{
			JobEnsureMonthly,
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 5))),
			s.EnsureMonthly,
		})
	}

	for _, j := range jobs {
		_, err := sched.NewJob(
			j.def,
			gocron.NewTask(s.wrap(j.name, j.run)),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			cancel()
			_ = sched.Shutdown()
			return nil, fmt.Errorf("scheduler: registering %s: %w", j.name, err)
		}
	}

	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.sched.Jobs())))
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("scheduler: shutdown: %w", err)
	}
	return nil
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

// wrap adds the per-run timeout, metrics and logging around a job.
func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
		defer cancel()

		start := time.Now()
		err := run(ctx)
		metrics.RecordJob(name, err)

		if err != nil {
			s.logger.Error("job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Debug("job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// CloseExpired runs the close-expired job once.
func (s *Scheduler) CloseExpired(ctx context.Context) error {
	n, err := s.challenges.CloseExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("closed expired challenges", slog.Int("count", n))
	}
	return nil
}

// EnsureMonthly runs the ensure-monthly job once.
func (s *Scheduler) EnsureMonthly(ctx context.Context) error {
	c, created, err := s.challenges.EnsureMonthly(ctx)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("opened monthly challenge", slog.String("slug", c.Slug))
	}
	return nil
}
