package scheduler

import (
	"context"
	"testing"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls chan struct{}
}

func (c *countingSweeper) ExpirePendingBookings(ctx context.Context) (int, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

func (c *countingSweeper) SendOverdueReminders(ctx context.Context) (int, error) {
	return 0, nil
}

func newRunner(spec string, sweeper jobs.BookingSweeper) *jobs.JobRunner {
	cfg := &config.Config{}
	cfg.Scheduler.ExpirePendingBookings = spec
	return jobs.NewJobRunner(sweeper, cfg)
}

func TestScheduler_Registration(t *testing.T) {
	t.Run("Valid spec", func(t *testing.T) {
		s := NewScheduler(newRunner("0 */10 * * * *", &countingSweeper{calls: make(chan struct{}, 1)}))
		// The reminder job has no spec here and is skipped.
		assert.Equal(t, []string{"expire-pending-bookings"}, s.Registered())
		assert.False(t, s.IsRunning())
	})

	t.Run("Invalid spec is skipped", func(t *testing.T) {
		s := NewScheduler(newRunner("every ten minutes", &countingSweeper{calls: make(chan struct{}, 1)}))
		assert.Empty(t, s.Registered())
		_, ok := s.NextRun("expire-pending-bookings")
		assert.False(t, ok)
	})
}

func TestScheduler_RunsSweep(t *testing.T) {
	sweeper := &countingSweeper{calls: make(chan struct{}, 1)}
	s := NewScheduler(newRunner("* * * * * *", sweeper))
	s.Start()
	s.Start()
	require.True(t, s.IsRunning())

	next, ok := s.NextRun("expire-pending-bookings")
	require.True(t, ok)
	assert.False(t, next.IsZero())

	select {
	case <-sweeper.calls:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
