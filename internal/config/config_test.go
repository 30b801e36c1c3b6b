package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"carrental-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	serverYAML  = "server:\n  port: 8080\n"
	memoryYAML  = "database:\n  type: memory\n"
	jwtYAML     = "jwt:\n  secret: 0123456789abcdef0123456789abcdef\n"
	storageYAML = "storage:\n  upload_dir: ./uploads\n"

	minimalYAML = serverYAML + memoryYAML + jwtYAML + storageYAML
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Type)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, "log", cfg.Email.Provider)
	assert.Equal(t, "mock", cfg.Payment.Type)
	assert.Equal(t, "USD", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.PaymentTimeout())
	assert.Equal(t, 24*time.Hour, cfg.ExpiryWindow())
	assert.Equal(t, int32(100), cfg.Booking.SweepBatchSize)
	assert.Equal(t, "0 */10 * * * *", cfg.Scheduler.ExpirePendingBookings)
	assert.Equal(t, "0 0 9 * * *", cfg.Scheduler.SendOverdueReminders)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30, cfg.Redis.LockTTLSeconds)
	assert.False(t, cfg.Redis.Enabled)

	pricing := cfg.PricingPolicy()
	assert.Equal(t, int64(5000), pricing.InsurancePerDayCents[domain.InsuranceStandard])
	assert.Equal(t, int64(10), pricing.ServiceFeePercent)
	assert.Len(t, cfg.CancellationPolicy().Tiers, 3)
}

func TestLoad_BookingPolicy(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML+`
booking:
  expiry_hours: 48
  insurance_per_day_cents:
    premium: 15000
  service_fee_percent: 12
  refund_tiers:
    - min_days_before: 14
      refund_percentage: 100
      fee_percentage: 0
    - min_days_before: 2
      refund_percentage: 25
      fee_percentage: 75
  fallback_refund_percentage: 0
`))
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.ExpiryWindow())
	pricing := cfg.PricingPolicy()
	assert.Equal(t, int64(15000), pricing.InsurancePerDayCents[domain.InsurancePremium])
	assert.Equal(t, int64(5000), pricing.InsurancePerDayCents[domain.InsuranceStandard])
	assert.Equal(t, int64(12), pricing.ServiceFeePercent)
	assert.Equal(t, int64(30), pricing.DepositPercent)

	policy := cfg.CancellationPolicy()
	assert.Equal(t, 25, policy.Tier(5).RefundPercentage)
	assert.Equal(t, 100, policy.Tier(20).RefundPercentage)
	assert.Equal(t, 100, policy.Tier(1).FeePercentage)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PAYMENT_TYPE", "http")
	t.Setenv("PAYMENT_BASE_URL", "https://pay.example.com")

	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http", cfg.Payment.Type)
	assert.Equal(t, ":9090", cfg.GetServerAddress())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"Missing port", memoryYAML + jwtYAML + storageYAML, "invalid server port"},
		{"Postgres needs host", serverYAML + "database:\n  type: postgres\n" + jwtYAML + storageYAML, "database host is required"},
		{"Unknown database", serverYAML + "database:\n  type: mongo\n" + jwtYAML + storageYAML, "unknown database type"},
		{"Short JWT secret", serverYAML + memoryYAML + "jwt:\n  secret: short\n" + storageYAML, "at least 32 characters"},
		{"Missing upload dir", serverYAML + memoryYAML + jwtYAML, "upload directory is required"},
		{"SMTP needs host", minimalYAML + "email:\n  provider: smtp\n", "SMTP host is required"},
		{"SendGrid needs key", minimalYAML + "email:\n  provider: sendgrid\n", "sendgrid API key is required"},
		{"HTTP payment needs URL", minimalYAML + "payment:\n  type: http\n", "payment base URL is required"},
		{"Unknown insurance", minimalYAML + "booking:\n  insurance_per_day_cents:\n    gold: 1\n", "unknown insurance option"},
		{"Bad refund tier", minimalYAML + "booking:\n  refund_tiers:\n    - min_days_before: 3\n      refund_percentage: 150\n", "invalid percentage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseConnectionString(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: 5432, User: "car", Password: "pw", Database: "rentals", SSLMode: "disable"}}
	assert.Equal(t, "postgres://car:pw@db:5432/rentals?sslmode=disable", cfg.GetDatabaseConnectionString())
}
