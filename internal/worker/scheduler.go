package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applog "dompet/internal/log"
)

// Scheduler runs the pending sweep on a cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	cron   *cron.Cron
	logger *applog.Logger
	once   sync.Once
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct{ l *applog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append([]interface{}{applog.FieldError, err}, keysAndValues...)...)
}

// NewScheduler registers job under schedule (standard five-field or @every syntax).
func NewScheduler(ctx context.Context, schedule string, logger *applog.Logger, job func(context.Context)) (*Scheduler, error) {
	logger = logger.WithComponent(applog.ComponentWorker)
	cl := cronLogger{l: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(schedule, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.logger.Info("Sweep scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.once.Do(func() {
		done := s.cron.Stop().Done()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Sweep still running at shutdown", applog.FieldError, ctx.Err())
		}
	})
}
