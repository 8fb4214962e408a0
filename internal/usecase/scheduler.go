package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	"GapScout/internal/services/session"
	"GapScout/pkg/logger"

	"github.com/robfig/cron/v3"
)

// cron ticks land a few milliseconds either side of the base interval
const tickTolerance = time.Second

// Cycler runs one scan cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (*models.ScanReport, error)
}

// Scheduler triggers scan cycles on a fixed cron tick, skipping ticks
// outside enabled sessions or sooner than the session-scaled interval.
type Scheduler struct {
	runner Cycler
	clock  *session.Clock
	base   time.Duration
	log    *logger.Logger
	now    func() time.Time

	cron    *cron.Cron
	entry   cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup

	mu      sync.Mutex
	lastRun time.Time
}

func NewScheduler(runner Cycler, clock *session.Clock, base time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	if base < time.Second {
		base = time.Second
	}
	log = log.With(logger.String("component", "scheduler"))
	return &Scheduler{
		runner: runner,
		clock:  clock,
		base:   base,
		log:    log,
		now:    time.Now,
		cron: cron.New(
			cron.WithLocation(clock.Location()),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
		),
	}
}

// Start schedules the job and runs the first check immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cancel != nil {
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	id, err := s.cron.AddJob(fmt.Sprintf("@every %s", s.base), cron.FuncJob(s.tick))
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule scan: %w", err)
	}
	s.entry = id
	job := s.cron.Entry(id).WrappedJob
	s.cron.Start()

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	s.log.Info("scheduler started", logger.Duration("base_interval", s.base))
	return nil
}

// Stop cancels a running cycle and waits for it to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	stopped := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.initial.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) tick() {
	now := s.now()
	if !s.clock.ShouldScan(now) {
		s.log.Debug("outside scanning session",
			logger.String("session", string(s.clock.Status(now))),
			logger.String("next_open", s.clock.NextOpen(now).Format(time.RFC3339)))
		return
	}

	s.mu.Lock()
	interval := s.clock.Interval(s.base, now)
	if !s.lastRun.IsZero() && now.Sub(s.lastRun)+tickTolerance < interval {
		s.mu.Unlock()
		return
	}
	s.lastRun = now
	s.mu.Unlock()

	if _, err := s.runner.RunCycle(s.ctx); err != nil {
		s.log.Warn("scan cycle failed", logger.Error(err))
	}
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug(msg, kvFields(kv)...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error(msg, append(kvFields(kv), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
