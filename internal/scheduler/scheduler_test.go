package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) DispatchDue(ctx context.Context) (int, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 3, f.err
}

type fakeCompleter struct {
	calls    int
	releases int
	err      error
}

func (f *fakeCompleter) CompleteElapsed(context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

func (f *fakeCompleter) ReleaseStaleHolds(ctx context.Context) (int64, error) {
	f.releases++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("missing deadline")
	}
	return 1, f.err
}

func newTestScheduler(d *fakeDispatcher, c *fakeCompleter, cfg Config) *Scheduler {
	return New(d, c, slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
}

func TestNewAppliesDefaults(t *testing.T) {
	s := newTestScheduler(&fakeDispatcher{}, &fakeCompleter{}, Config{})

	assert.Equal(t, DefaultReminderSchedule, s.cfg.ReminderSchedule)
	assert.Equal(t, DefaultCompletionSchedule, s.cfg.CompletionSchedule)
	assert.Equal(t, DefaultHoldSchedule, s.cfg.HoldSchedule)
	assert.Equal(t, DefaultJobTimeout, s.cfg.JobTimeout)
}

func TestStartRegistersJobs(t *testing.T) {
	s := newTestScheduler(&fakeDispatcher{}, &fakeCompleter{}, Config{})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 3)
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "reminder", cfg: Config{ReminderSchedule: "every now and then"}},
		{name: "completion", cfg: Config{CompletionSchedule: "*/5 * * * *"}},
		{name: "hold release", cfg: Config{HoldSchedule: "@sometimes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(&fakeDispatcher{}, &fakeCompleter{}, tt.cfg)

			err := s.Start()

			assert.ErrorContains(t, err, tt.name)
		})
	}
}

func TestJobsCallTheirTargets(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	completer := &fakeCompleter{err: errors.New("db down")}
	s := newTestScheduler(dispatcher, completer, Config{})

	s.DispatchReminders()
	s.CompleteBookings()
	s.ReleaseHolds()

	assert.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, 1, completer.releases)
}
