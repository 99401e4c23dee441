package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultRunTimeout = 10 * time.Minute

// Job is one digest run.
type Job interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler triggers a Job on a cron expression evaluated in a time zone.
// Overlapping runs are skipped.
type Scheduler struct {
	cron       *cron.Cron
	job        Job
	runTimeout time.Duration
	logger     *slog.Logger
}

// NewScheduler parses spec (standard five-field cron syntax or a descriptor
// such as "@daily").
func NewScheduler(job Job, spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("digest: job must not be nil")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "digest-scheduler")

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:        job,
		runTimeout: defaultRunTimeout,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("digest: schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()
	report, err := s.job.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled digest failed", "err", err, "sent", report.Sent, "failed", report.Failed)
		return
	}
	s.logger.Info("scheduled digest done", "total", report.Total, "sent", report.Sent, "failed", report.Failed)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running job, or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
