// Package app builds the booking engine's object graph from configuration.
// Both the API server and the cron runner start from Build.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/lifecycle"
	"carrental-backend/internal/lock"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/metrics"
	"carrental-backend/internal/payment"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/repository/memory"
	"carrental-backend/internal/repository/postgres"
	"carrental-backend/internal/service"
	"carrental-backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Container holds everything wired from one configuration.
type Container struct {
	Config        *config.Config
	Users         repository.UserRepository
	Vehicles      repository.VehicleRepository
	Bookings      repository.BookingRepository
	Notes         repository.NotificationRepository
	Photos        *storage.LocalStorage
	Metrics       *metrics.Metrics
	BookingSvc    service.BookingService
	Notifications service.NotificationService

	db      *sql.DB
	closers []func() error
}

// Build connects to the configured backends and assembles the services.
// reg receives the booking metrics; nil disables them.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Container, error) {
	c := &Container{Config: cfg}
	if err := c.openStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	locker, err := c.newLocker(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	gateway, err := NewGateway(cfg.Payment)
	if err != nil {
		c.Close()
		return nil, err
	}

	email, err := NewEmailSender(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	push, err := NewPushSender(ctx, cfg.Push)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Photos, err = NewPhotoStorage(cfg.Storage)
	if err != nil {
		c.Close()
		return nil, err
	}

	if reg != nil {
		c.Metrics = metrics.NewMetrics("carrental", reg)
	}

	notifier := service.NewNotifier(c.Users, c.Notes, email, push)
	c.BookingSvc = service.NewBookingService(
		c.Bookings,
		c.Vehicles,
		gateway,
		locker,
		notifier,
		c.Photos,
		lifecycle.NewMachine(cfg.ExpiryWindow(), cfg.CancellationPolicy()),
		service.BookingOptions{
			Pricing:        cfg.PricingPolicy(),
			Currency:       cfg.Payment.Currency,
			PaymentTimeout: cfg.PaymentTimeout(),
			SweepBatchSize: cfg.Booking.SweepBatchSize,
			PhotoURLExpiry: time.Duration(cfg.Storage.URLExpiryMinutes) * time.Minute,
			Metrics:        c.Metrics,
		},
	)
	c.Notifications = service.NewNotificationService(c.Notes)
	return c, nil
}

// DB is the postgres pool, or nil when running on the memory store.
func (c *Container) DB() *sql.DB {
	return c.db
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	c.closers = nil
}

func (c *Container) openStore(ctx context.Context) error {
	cfg := c.Config.Database
	if cfg.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		SeedDemoData(store)
		c.Users, c.Vehicles, c.Bookings, c.Notes = store.UserRepository, store.VehicleRepository, store.BookingRepository, store.NotificationRepository
		return nil
	}

	logger.Debug("Connecting to database...", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database, "user", cfg.User)
	db, err := sql.Open("postgres", c.Config.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.closers = append(c.closers, db.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	c.db = db
	c.Users, c.Vehicles, c.Bookings, c.Notes = store.UserRepository, store.VehicleRepository, store.BookingRepository, store.NotificationRepository
	return nil
}

// newLocker returns a Redis lock when several instances share the store, and
// an in-process lock otherwise.
func (c *Container) newLocker(ctx context.Context) (lock.Locker, error) {
	cfg := c.Config.Redis
	if !cfg.Enabled {
		logger.Info("Using in-process booking locks")
		return lock.NewKeyedMutex(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	c.closers = append(c.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	logger.Info("Using redis booking locks", "addr", cfg.Addr)
	return lock.NewRedisLocker(client,
		time.Duration(cfg.LockTTLSeconds)*time.Second,
		time.Duration(cfg.LockWaitMillis)*time.Millisecond,
	), nil
}

func NewGateway(cfg config.PaymentConfig) (payment.Gateway, error) {
	switch cfg.Type {
	case "", "mock":
		logger.Warn("Using mock payment gateway")
		return payment.NewMockGateway(), nil
	case "http":
		return payment.NewHTTPGateway(cfg.BaseURL, cfg.APIKey, time.Duration(cfg.TimeoutSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway type: %s", cfg.Type)
	}
}

func NewEmailSender(cfg *config.Config) (service.EmailSender, error) {
	switch cfg.Email.Provider {
	case "", "log":
		return service.NewLogEmailSender(), nil
	case "smtp":
		logger.Info("SMTP configuration", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		return service.NewSMTPEmailSender(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port), cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From), nil
	case "sendgrid":
		return service.NewSendGridEmailSender(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Email.Provider)
	}
}

// NewPushSender uses Firebase Cloud Messaging when credentials are configured.
func NewPushSender(ctx context.Context, cfg config.PushConfig) (service.PushSender, error) {
	if cfg.CredentialsFile == "" {
		logger.Info("Push notifications disabled")
		return service.NewNoopPushSender(), nil
	}
	return service.NewFCMPushSender(ctx, cfg.CredentialsFile)
}

func NewPhotoStorage(cfg config.StorageConfig) (*storage.LocalStorage, error) {
	if cfg.Type != "" && cfg.Type != "mock" {
		return nil, fmt.Errorf("storage type '%s' not yet implemented", cfg.Type)
	}
	logger.Info("Using local photo storage", "upload_dir", cfg.UploadDir)
	photos, err := storage.NewLocalStorage(cfg.BaseURL, cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize photo storage: %w", err)
	}
	return photos, nil
}

// SeedDemoData gives the memory store one owner, one renter and one vehicle so
// a local run can take bookings.
func SeedDemoData(store *memory.Store) {
	deposit := int64(100000)
	store.PutUser(domain.User{ID: "demo-owner", Email: "owner@example.com", Name: "Demo Owner"})
	store.PutUser(domain.User{ID: "demo-renter", Email: "renter@example.com", Name: "Demo Renter"})
	store.PutVehicle(domain.Vehicle{
		ID:                   "demo-vehicle",
		OwnerID:              "demo-owner",
		Title:                "Renault Clio",
		PricePerDayCents:     35000,
		SecurityDepositCents: &deposit,
		Location:             "Casablanca",
		Currency:             "MAD",
	})
	logger.Info("Seeded demo data", "vehicle", "demo-vehicle", "owner", "demo-owner", "renter", "demo-renter")
}
