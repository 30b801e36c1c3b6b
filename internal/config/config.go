package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Email     EmailConfig     `yaml:"email"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Push      PushConfig      `yaml:"push"`
	JWT       JWTConfig       `yaml:"jwt"`
	Payment   PaymentConfig   `yaml:"payment"`
	Storage   StorageConfig   `yaml:"storage"`
	Booking   BookingConfig   `yaml:"booking"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`      // REST API
	GRPCPort int    `yaml:"grpc_port"` // health checks
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Type     string `yaml:"type"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig enables locks shared across instances
type RedisConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	LockWaitMillis int    `yaml:"lock_wait_millis"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// EmailConfig selects the email provider
type EmailConfig struct {
	Provider string `yaml:"provider"` // "smtp", "sendgrid" or "log"
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// PushConfig contains Firebase Cloud Messaging settings. Push is off without credentials.
type PushConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// PaymentConfig contains payment processor settings
type PaymentConfig struct {
	Type           string `yaml:"type"` // "mock" or "http"
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Currency       string `yaml:"currency"`
}

// StorageConfig contains checklist photo storage settings
type StorageConfig struct {
	Type             string `yaml:"type"`       // "mock"
	UploadDir        string `yaml:"upload_dir"` // For mock storage
	BaseURL          string `yaml:"base_url"`   // Server base URL for mock URLs
	MaxFileSize      int64  `yaml:"max_file_size_mb"`
	URLExpiryMinutes int    `yaml:"url_expiry_minutes"`
}

// BookingConfig holds the pricing and cancellation policy
type BookingConfig struct {
	ExpiryHours              int                `yaml:"expiry_hours"`
	InsurancePerDayCents     map[string]int64   `yaml:"insurance_per_day_cents"`
	ServiceFeePercent        int64              `yaml:"service_fee_percent"`
	DepositPercent           int64              `yaml:"deposit_percent"`
	RefundTiers              []utils.RefundTier `yaml:"refund_tiers"`
	FallbackRefundPercentage int                `yaml:"fallback_refund_percentage"`
	SweepBatchSize           int32              `yaml:"sweep_batch_size"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpirePendingBookings string `yaml:"expire_pending_bookings"`
	SendOverdueReminders  string `yaml:"send_overdue_reminders"`
}

// Load reads configuration from a YAML file. A .env file next to the process,
// when present, is loaded first so its values act as environment overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("GRPC_PORT", &c.Server.GRPCPort)

	// Database
	envString("DB_TYPE", &c.Database.Type)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	// Redis
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
		c.Redis.Enabled = true
	}
	envString("REDIS_PASSWORD", &c.Redis.Password)

	// Email
	envString("EMAIL_PROVIDER", &c.Email.Provider)
	envString("SMTP_HOST", &c.SMTP.Host)
	envInt("SMTP_PORT", &c.SMTP.Port)
	envString("SMTP_USER", &c.SMTP.User)
	envString("SMTP_PASSWORD", &c.SMTP.Password)
	envString("SMTP_FROM", &c.SMTP.From)
	envString("SENDGRID_API_KEY", &c.SendGrid.APIKey)

	// Push
	envString("FIREBASE_CREDENTIALS_FILE", &c.Push.CredentialsFile)

	// JWT
	envString("JWT_SECRET", &c.JWT.Secret)

	// Payment
	envString("PAYMENT_TYPE", &c.Payment.Type)
	envString("PAYMENT_BASE_URL", &c.Payment.BaseURL)
	envString("PAYMENT_API_KEY", &c.Payment.APIKey)

	// Storage
	envString("UPLOAD_DIR", &c.Storage.UploadDir)
	envString("STORAGE_BASE_URL", &c.Storage.BaseURL)

	// Log
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.Server.GRPCPort)
	}

	// Database validation
	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	switch c.Database.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}

	// Redis defaults
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}
	if c.Redis.LockTTLSeconds == 0 {
		c.Redis.LockTTLSeconds = 30
	}
	if c.Redis.LockWaitMillis == 0 {
		c.Redis.LockWaitMillis = 2000
	}

	// Email validation
	if c.Email.Provider == "" {
		c.Email.Provider = "log"
	}
	switch c.Email.Provider {
	case "smtp":
		if c.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.SMTP.Port)
		}
	case "sendgrid":
		if c.SendGrid.APIKey == "" {
			return fmt.Errorf("sendgrid API key is required")
		}
	case "log":
	default:
		return fmt.Errorf("unknown email provider: %s", c.Email.Provider)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Payment validation
	if c.Payment.Type == "" {
		c.Payment.Type = "mock"
	}
	if c.Payment.Type == "http" && c.Payment.BaseURL == "" {
		return fmt.Errorf("payment base URL is required")
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "USD"
	}

	// Storage validation
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if c.Storage.URLExpiryMinutes == 0 {
		c.Storage.URLExpiryMinutes = 15
	}
	if c.Storage.MaxFileSize == 0 {
		c.Storage.MaxFileSize = 10
	}

	// Booking defaults
	if c.Booking.ExpiryHours == 0 {
		c.Booking.ExpiryHours = 24
	}
	if c.Booking.ExpiryHours < 0 {
		return fmt.Errorf("booking expiry must be positive: %d", c.Booking.ExpiryHours)
	}
	for option := range c.Booking.InsurancePerDayCents {
		if !domain.InsuranceOption(option).IsValid() {
			return fmt.Errorf("unknown insurance option: %s", option)
		}
	}
	for _, t := range c.Booking.RefundTiers {
		if t.RefundPercentage < 0 || t.RefundPercentage > 100 || t.FeePercentage < 0 || t.FeePercentage > 100 {
			return fmt.Errorf("refund tier for %d days has an invalid percentage", t.MinDaysBefore)
		}
	}
	if c.Booking.SweepBatchSize == 0 {
		c.Booking.SweepBatchSize = 100
	}

	// Scheduler defaults
	if c.Scheduler.ExpirePendingBookings == "" {
		c.Scheduler.ExpirePendingBookings = "0 */10 * * * *" // every 10 minutes
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 9 * * *" // daily at 09:00 UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the REST server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the health check server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// InMemory reports whether bookings live only inside the serving process. A
// separate cron process would then sweep an empty store.
func (c *Config) InMemory() bool {
	return c.Database.Type == "memory"
}

func (c *Config) ExpiryWindow() time.Duration {
	return time.Duration(c.Booking.ExpiryHours) * time.Hour
}

func (c *Config) PaymentTimeout() time.Duration {
	return time.Duration(c.Payment.TimeoutSeconds) * time.Second
}

// PricingPolicy merges configured fees over the defaults.
func (c *Config) PricingPolicy() utils.PricingPolicy {
	p := utils.DefaultPricingPolicy()
	for option, cents := range c.Booking.InsurancePerDayCents {
		p.InsurancePerDayCents[domain.InsuranceOption(option)] = cents
	}
	if c.Booking.ServiceFeePercent > 0 {
		p.ServiceFeePercent = c.Booking.ServiceFeePercent
	}
	if c.Booking.DepositPercent > 0 {
		p.DepositPercent = c.Booking.DepositPercent
	}
	return p
}

// CancellationPolicy returns the configured refund tiers, or the defaults.
func (c *Config) CancellationPolicy() utils.CancellationPolicy {
	p := utils.DefaultCancellationPolicy()
	if len(c.Booking.RefundTiers) > 0 {
		p.Tiers = c.Booking.RefundTiers
		p.Fallback = utils.RefundTier{
			RefundPercentage: c.Booking.FallbackRefundPercentage,
			FeePercentage:    100 - c.Booking.FallbackRefundPercentage,
		}
	}
	return p
}
