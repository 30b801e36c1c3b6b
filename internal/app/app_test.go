package app

import (
	"context"
	"testing"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/payment"
	"carrental-backend/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Database.Type = "memory"
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.BaseURL = "http://localhost:8080"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	cfg := memoryConfig(t)
	reg := prometheus.NewRegistry()

	c, err := Build(context.Background(), cfg, reg)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB())
	assert.NotNil(t, c.Metrics)

	ctx := context.Background()
	b, err := c.BookingSvc.CreateBooking(ctx, domain.Actor{UserID: "demo-renter"}, service.CreateBookingRequest{
		VehicleID: "demo-vehicle", StartDate: "2099-06-01", EndDate: "2099-06-03",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), b.DepositCents)
	assert.Equal(t, "MAD", b.Currency)

	notes, total, err := c.Notifications.GetNotifications(ctx, "demo-owner", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Len(t, notes, 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuild_RedisUnreachable(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(config.PaymentConfig{Type: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &payment.MockGateway{}, g)

	g, err = NewGateway(config.PaymentConfig{Type: "http", BaseURL: "https://pay.example.com", TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.IsType(t, &payment.HTTPGateway{}, g)

	_, err = NewGateway(config.PaymentConfig{Type: "cheque"})
	assert.Error(t, err)
}

func TestNewEmailSender(t *testing.T) {
	cfg := &config.Config{}
	for _, provider := range []string{"log", "smtp", "sendgrid"} {
		cfg.Email.Provider = provider
		sender, err := NewEmailSender(cfg)
		require.NoError(t, err, provider)
		assert.NotNil(t, sender)
	}

	cfg.Email.Provider = "pigeon"
	_, err := NewEmailSender(cfg)
	assert.Error(t, err)
}

func TestNewPhotoStorage(t *testing.T) {
	_, err := NewPhotoStorage(config.StorageConfig{Type: "s3", UploadDir: t.TempDir()})
	assert.Error(t, err)

	photos, err := NewPhotoStorage(config.StorageConfig{UploadDir: t.TempDir(), BaseURL: "http://localhost"})
	require.NoError(t, err)
	assert.NotNil(t, photos)
}
