package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultReminderSchedule   = "*/30 * * * * *"
	DefaultCompletionSchedule = "0 */5 * * * *"
	DefaultHoldSchedule       = "0 * * * * *"
	DefaultJobTimeout         = time.Minute
)

type ReminderDispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

type BookingSweeper interface {
	CompleteElapsed(ctx context.Context) (int64, error)
	ReleaseStaleHolds(ctx context.Context) (int64, error)
}

type Config struct {
	ReminderSchedule   string
	CompletionSchedule string
	HoldSchedule       string
	JobTimeout         time.Duration
}

// Scheduler runs the background jobs: reminder delivery, the sweep that completes elapsed
// bookings and the release of abandoned update holds. Schedules use six fields with seconds and
// are evaluated in UTC.
type Scheduler struct {
	cron      *cron.Cron
	reminders ReminderDispatcher
	bookings  BookingSweeper
	logger    *slog.Logger
	cfg       Config
}

func New(reminders ReminderDispatcher, bookings BookingSweeper, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.ReminderSchedule == "" {
		cfg.ReminderSchedule = DefaultReminderSchedule
	}
	if cfg.CompletionSchedule == "" {
		cfg.CompletionSchedule = DefaultCompletionSchedule
	}
	if cfg.HoldSchedule == "" {
		cfg.HoldSchedule = DefaultHoldSchedule
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:      c,
		reminders: reminders,
		bookings:  bookings,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start registers the jobs and starts the cron loop. An invalid schedule is reported before
// anything runs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReminderSchedule, s.DispatchReminders); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}
	s.logger.Info("scheduled reminder job", "schedule", s.cfg.ReminderSchedule)

	if _, err := s.cron.AddFunc(s.cfg.CompletionSchedule, s.CompleteBookings); err != nil {
		return fmt.Errorf("schedule completion job: %w", err)
	}
	s.logger.Info("scheduled completion job", "schedule", s.cfg.CompletionSchedule)

	if _, err := s.cron.AddFunc(s.cfg.HoldSchedule, s.ReleaseHolds); err != nil {
		return fmt.Errorf("schedule hold release job: %w", err)
	}
	s.logger.Info("scheduled hold release job", "schedule", s.cfg.HoldSchedule)

	s.cron.Start()
	return nil
}

// Stop stops scheduling new runs. The returned context is done once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) DispatchReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	sent, err := s.reminders.DispatchDue(ctx)
	if err != nil {
		s.logger.Error("reminder dispatch failed", "error", err)
		return
	}

	if sent > 0 {
		s.logger.Info("reminders dispatched", "count", sent)
	}
}

func (s *Scheduler) CompleteBookings() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	completed, err := s.bookings.CompleteElapsed(ctx)
	if err != nil {
		s.logger.Error("booking completion sweep failed", "error", err)
		return
	}

	if completed > 0 {
		s.logger.Info("bookings completed", "count", completed)
	}
}

func (s *Scheduler) ReleaseHolds() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	released, err := s.bookings.ReleaseStaleHolds(ctx)
	if err != nil {
		s.logger.Error("update hold release failed", "error", err)
		return
	}

	if released > 0 {
		s.logger.Warn("stale update holds released", "count", released)
	}
}
