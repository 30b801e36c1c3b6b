package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	payload := map[string]string{
		"booking_id":    "b-1",
		"vehicle_title": "Dacia Logan",
		"start_date":    "2024-01-10",
		"end_date":      "2024-01-13",
	}

	t.Run("Stores and delivers", func(t *testing.T) {
		store := memory.NewStore()
		store.PutUser(domain.User{ID: "o-1", Email: "owner@test.com", Name: "Owner", PushToken: "device-1"})
		email := new(MockEmailSender)
		push := new(MockPushSender)
		email.On("Send", mock.Anything, "owner@test.com", "Owner", "New Booking Request", mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "Dacia Logan") && strings.Contains(body, "2024-01-10 to 2024-01-13")
		})).Return(nil)
		push.On("Push", mock.Anything, "device-1", "New Booking Request", mock.Anything, mock.MatchedBy(func(data map[string]string) bool {
			return data["type"] == "BOOKING_REQUESTED" && data["booking_id"] == "b-1"
		})).Return(nil)

		n := NewNotifier(store.UserRepository, store.NotificationRepository, email, push)
		require.NoError(t, n.Notify(ctx, "o-1", domain.EventBookingRequested, payload))

		email.AssertExpectations(t)
		push.AssertExpectations(t)

		notes, total, err := store.NotificationRepository.List(ctx, "o-1", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
		assert.Equal(t, "New Booking Request", notes[0].Title)
		assert.Equal(t, "b-1", notes[0].Attributes["booking_id"])
	})

	t.Run("Delivery failures are not fatal", func(t *testing.T) {
		store := memory.NewStore()
		store.PutUser(domain.User{ID: "r-1", Email: "renter@test.com", Name: "Renter"})
		email := new(MockEmailSender)
		push := new(MockPushSender)
		email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		n := NewNotifier(store.UserRepository, store.NotificationRepository, email, push)
		p := map[string]string{"reason": "unavailable"}
		assert.NoError(t, n.Notify(ctx, "r-1", domain.EventBookingRejected, p))

		push.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		notes, _, err := store.NotificationRepository.List(ctx, "r-1", 10, 0)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Contains(t, notes[0].Message, "Reason: unavailable")
	})

	t.Run("Unknown user still gets the in-app notification", func(t *testing.T) {
		store := memory.NewStore()
		email := new(MockEmailSender)
		push := new(MockPushSender)

		n := NewNotifier(store.UserRepository, store.NotificationRepository, email, push)
		assert.NoError(t, n.Notify(ctx, "ghost", domain.EventBookingExpired, payload))

		email.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		_, total, err := store.NotificationRepository.List(ctx, "ghost", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
	})
}

func TestRenderNotification(t *testing.T) {
	events := []domain.NotificationEvent{
		domain.EventBookingRequested, domain.EventBookingAccepted, domain.EventBookingRejected,
		domain.EventBookingCancelled, domain.EventBookingExpired, domain.EventPaymentCaptured,
	}
	seen := map[string]bool{}
	for _, e := range events {
		title, body := renderNotification(e, map[string]string{"amount": "1800.00 MAD"})
		assert.NotEmpty(t, body, e)
		assert.False(t, seen[title], "duplicate title %q", title)
		seen[title] = true
	}

	_, body := renderNotification(domain.EventPaymentCaptured, map[string]string{"amount": "1800.00 MAD"})
	assert.Contains(t, body, "1800.00 MAD")
	assert.Contains(t, body, "your vehicle")
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.NotificationRepository.Create(ctx, &domain.Notification{UserID: "r-1", Title: "t"}))
	}
	svc := NewNotificationService(store.NotificationRepository)

	notes, total, err := svc.GetNotifications(ctx, "r-1", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), total)
	assert.Len(t, notes, 2)

	require.NoError(t, svc.MarkAsRead(ctx, "r-1", notes[0].ID))
	err = svc.MarkAsRead(ctx, "o-1", notes[1].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "1800.00 MAD", formatCents(180000, "MAD"))
	assert.Equal(t, "0.05 USD", formatCents(5, "USD"))
	assert.Equal(t, "-12.50 EUR", formatCents(-1250, "EUR"))
}
