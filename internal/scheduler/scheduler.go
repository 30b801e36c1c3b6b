package scheduler

import (
	"sort"
	"sync"
	"time"

	"carrental-backend/internal/jobs"
	"carrental-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the job runner's recurring jobs on their cron specs
type Scheduler struct {
	cron    *cron.Cron
	jobs    *jobs.JobRunner
	entries map[string]cron.EntryID

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler and registers every job with a valid spec
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// UTC with seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:    c,
		jobs:    jobRunner,
		entries: make(map[string]cron.EntryID),
	}

	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	for _, job := range s.jobs.Schedules() {
		run := job.Run
		id, err := s.cron.AddFunc(job.Spec, func() {
			// Failures are logged by the job runner.
			_ = run()
		})
		if err != nil {
			logger.Error("Failed to register job", "job", job.Name, "spec", job.Spec, "error", err)
			continue
		}
		s.entries[job.Name] = id
		logger.Info("Registered job", "job", job.Name, "spec", job.Spec)
	}
	logger.Info("Cron jobs registered", "count", len(s.entries))
}

// Registered returns the names of the jobs that were scheduled
func (s *Scheduler) Registered() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextRun reports when a registered job fires next
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	logger.Info("Cron scheduler started", "jobs", s.Registered())
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	logger.Info("Stopping cron scheduler...")
	<-s.cron.Stop().Done()
	s.running = false
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true between Start and Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
