package connection

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

type sweepJob struct {
	name string
	run  func()
}

// Sweeper runs housekeeping jobs on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	schedule string
	jobs     []sweepJob
	logger   *slog.Logger
}

// NewSweeper creates a stopped Sweeper. An empty schedule selects DefaultSweepSchedule.
func NewSweeper(schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	cl := cronLogger{logger: logger}
	return &Sweeper{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		schedule: schedule,
		logger:   logger,
	}
}

// Add registers a job. Jobs added after Start are not scheduled.
func (s *Sweeper) Add(name string, run func()) {
	s.jobs = append(s.jobs, sweepJob{name: name, run: run})
}

// AddPool registers stale cleanup for p.
func (s *Sweeper) AddPool(p *Pool) {
	s.Add("pool-cleanup", func() { p.CleanupStaleConnections() })
}

// Start schedules every job and starts the scheduler.
func (s *Sweeper) Start() error {
	for _, job := range s.jobs {
		if _, err := s.cron.AddFunc(s.schedule, job.run); err != nil {
			return fmt.Errorf("invalid sweep schedule %q for %s: %w", s.schedule, job.name, err)
		}
	}
	s.cron.Start()
	s.logger.Info("sweeper started", "schedule", s.schedule, "jobs", len(s.jobs))
	return nil
}

// RunNow runs every job once on the calling goroutine.
func (s *Sweeper) RunNow() {
	for _, job := range s.jobs {
		job.run()
	}
}

// Stop stops the scheduler and waits for running jobs.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}
