package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/logger"
)

// BookingSweeper is the part of the booking service the jobs need.
type BookingSweeper interface {
	ExpirePendingBookings(ctx context.Context) (int, error)
	SendOverdueReminders(ctx context.Context) (int, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	bookings BookingSweeper
	config   *config.Config
	timeout  time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(bookings BookingSweeper, cfg *config.Config) *JobRunner {
	return &JobRunner{
		bookings: bookings,
		config:   cfg,
		timeout:  5 * time.Minute,
	}
}

// Config returns the configuration the jobs were built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "duration", time.Since(start), "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}

// Schedule pairs a job with its cron spec.
type Schedule struct {
	Name string
	Spec string
	Run  func() error
}

// Schedules lists the recurring jobs with the specs from the scheduler config.
func (jr *JobRunner) Schedules() []Schedule {
	return []Schedule{
		{Name: "expire-pending-bookings", Spec: jr.config.Scheduler.ExpirePendingBookings, Run: jr.ExpirePendingBookings},
		{Name: "send-overdue-reminders", Spec: jr.config.Scheduler.SendOverdueReminders, Run: jr.SendOverdueReminders},
	}
}

// Jobs maps the names accepted by the cron binary to their functions
func (jr *JobRunner) Jobs() map[string]func() error {
	return map[string]func() error{
		"expire-pending-bookings": jr.ExpirePendingBookings,
		"send-overdue-reminders":  jr.SendOverdueReminders,
	}
}

// JobNames lists the registered job names in order
func (jr *JobRunner) JobNames() []string {
	var names []string
	for name := range jr.Jobs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunJob runs one job by name (for manual execution)
func (jr *JobRunner) RunJob(name string) error {
	job, ok := jr.Jobs()[name]
	if !ok {
		return fmt.Errorf("unknown job %q, available: %v", name, jr.JobNames())
	}
	return job()
}
