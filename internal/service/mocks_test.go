package service

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/payment"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID string, event domain.NotificationEvent, payload map[string]string) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, toName, subject, body string) error {
	args := m.Called(ctx, to, toName, subject, body)
	return args.Error(0)
}

type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	args := m.Called(ctx, deviceToken, title, body, data)
	return args.Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) AuthorizeAndCharge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.ChargeResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, req payment.RefundRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockBookingRepo is used where a test needs a failing store.
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) CreateIfAvailable(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBookingRepo) HasOverlap(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error) {
	args := m.Called(ctx, vehicleID, start, end, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking).Clone(), args.Error(1)
}

func (m *MockBookingRepo) UpdateIfUnchanged(ctx context.Context, b *domain.Booking, prevStatus domain.BookingStatus, prevUpdatedAt time.Time) error {
	args := m.Called(ctx, b, prevStatus, prevUpdatedAt)
	return args.Error(0)
}

func (m *MockBookingRepo) ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, renterID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), int32(args.Int(1)), args.Error(2)
}

func (m *MockBookingRepo) ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, ownerID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), int32(args.Int(1)), args.Error(2)
}

func (m *MockBookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Booking, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListInProgressEndedBefore(ctx context.Context, cutoff time.Time, limit, offset int32) ([]domain.Booking, error) {
	args := m.Called(ctx, cutoff, limit, offset)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
