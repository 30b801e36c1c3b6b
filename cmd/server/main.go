package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "carrental-backend/internal/api/http"
	"carrental-backend/internal/app"
	"carrental-backend/internal/config"
	"carrental-backend/internal/jobs"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/scheduler"
	"carrental-backend/internal/security"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "carrental.BookingService"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Also run the cron jobs in this process")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Car Rental Booking Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		logger.Error("Failed to initialize services", "error", err)
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Close()

	// REST API
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Bookings:       container.BookingSvc,
		Notifications:  container.Notifications,
		Tokens:         security.NewTokenManager(cfg.JWT.Secret),
		Photos:         container.Photos,
		MaxUploadBytes: cfg.Storage.MaxFileSize << 20,
		Metrics:        promhttp.Handler(),
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// gRPC health for probes
	var grpcServer *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		// Register reflection service for grpcurl
		reflection.Register(grpcServer)
		go watchDatabase(ctx, container, healthServer)

		go func() {
			logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	var cronScheduler *scheduler.Scheduler
	if *withScheduler || cfg.InMemory() {
		if !*withScheduler {
			logger.Info("Memory database, running scheduled jobs in the server process")
		}
		cronScheduler = scheduler.NewScheduler(jobs.NewJobRunner(container.BookingSvc, cfg))
		cronScheduler.Start()
	}

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	logger.Info("Server stopped. Goodbye!")
}

// watchDatabase reports NOT_SERVING while the database cannot be reached.
func watchDatabase(ctx context.Context, container *app.Container, hs *health.Server) {
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	db := container.DB()
	if db == nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := db.PingContext(pingCtx)
			cancel()
			status := healthpb.HealthCheckResponse_SERVING
			if err != nil {
				logger.Warn("Database health check failed", "error", err)
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			hs.SetServingStatus("", status)
			hs.SetServingStatus(serviceName, status)
		}
	}
}
