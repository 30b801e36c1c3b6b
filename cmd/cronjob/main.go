package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"carrental-backend/internal/app"
	"carrental-backend/internal/config"
	"carrental-backend/internal/jobs"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run one job and exit (e.g. 'expire-pending-bookings')")
	list := flag.Bool("list", false, "Print the available jobs and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Close()

	jobRunner := jobs.NewJobRunner(container.BookingSvc, cfg)

	if *list {
		for _, s := range jobRunner.Schedules() {
			fmt.Printf("%-28s %s\n", s.Name, s.Spec)
		}
		return
	}

	if cfg.InMemory() {
		logger.Warn("Memory database, jobs only see this process's empty store; the server runs them itself in this mode")
	}

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.RunJob(*runOnce); err != nil {
			container.Close()
			log.Fatalf("Job %s failed: %v", *runOnce, err)
		}
		return
	}

	cronScheduler := scheduler.NewScheduler(jobRunner)
	if len(cronScheduler.Registered()) == 0 {
		container.Close()
		log.Fatalf("No job could be scheduled, check the scheduler section of %s", *configPath)
	}
	cronScheduler.Start()
	logger.Info("Cronjob runner is up. Press Ctrl+C to stop.")

	<-ctx.Done()
	cronScheduler.Stop()
	logger.Info("Cronjob runner stopped")
}
