package service

import (
	"context"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type notifier struct {
	userRepo repository.UserRepository
	noteRepo repository.NotificationRepository
	email    EmailSender
	push     PushSender
}

// NewNotifier persists an in-app notification for every event and forwards it
// by email and, when the user registered a device, by push.
func NewNotifier(
	userRepo repository.UserRepository,
	noteRepo repository.NotificationRepository,
	email EmailSender,
	push PushSender,
) Notifier {
	return &notifier{
		userRepo: userRepo,
		noteRepo: noteRepo,
		email:    email,
		push:     push,
	}
}

// Notify stores the notification first. Email and push failures are logged and
// do not fail the call.
func (n *notifier) Notify(ctx context.Context, userID string, event domain.NotificationEvent, payload map[string]string) error {
	logger.EnterMethod("notifier.Notify", "userID", userID, "event", event)

	title, body := renderNotification(event, payload)
	attrs := map[string]string{"type": string(event)}
	for k, v := range payload {
		attrs[k] = v
	}
	note := &domain.Notification{
		UserID:     userID,
		Title:      title,
		Message:    body,
		Attributes: attrs,
	}
	if err := n.noteRepo.Create(ctx, note); err != nil {
		logger.ExitMethodWithError("notifier.Notify", err, "userID", userID)
		return fmt.Errorf("failed to save notification: %w", err)
	}

	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Recipient lookup failed, skipping delivery", "userID", userID, "error", err)
		logger.ExitMethod("notifier.Notify", "userID", userID)
		return nil
	}

	if user.Email != "" {
		if err := n.email.Send(ctx, user.Email, user.Name, title, body); err != nil {
			logger.Warn("Failed to send notification email", "userID", userID, "event", event, "error", err)
		}
	}
	if user.PushToken != "" {
		if err := n.push.Push(ctx, user.PushToken, title, body, attrs); err != nil {
			logger.Warn("Failed to send push notification", "userID", userID, "event", event, "error", err)
		}
	}

	logger.ExitMethod("notifier.Notify", "userID", userID)
	return nil
}

func renderNotification(event domain.NotificationEvent, payload map[string]string) (string, string) {
	vehicle := payload["vehicle_title"]
	if vehicle == "" {
		vehicle = "your vehicle"
	}
	dates := fmt.Sprintf("%s to %s", payload["start_date"], payload["end_date"])

	var title, body string
	switch event {
	case domain.EventBookingRequested:
		title = "New Booking Request"
		body = fmt.Sprintf("You have a new booking request for %s from %s.", vehicle, dates)
	case domain.EventBookingAccepted:
		title = "Booking Accepted"
		body = fmt.Sprintf("Your booking of %s from %s was accepted. You can now pay and contact the owner.", vehicle, dates)
	case domain.EventBookingRejected:
		title = "Booking Rejected"
		body = fmt.Sprintf("Your booking of %s from %s was rejected.", vehicle, dates)
	case domain.EventBookingCancelled:
		title = "Booking Cancelled"
		body = fmt.Sprintf("The booking of %s from %s was cancelled.", vehicle, dates)
	case domain.EventBookingExpired:
		title = "Booking Expired"
		body = fmt.Sprintf("Your booking request for %s from %s expired before the owner answered.", vehicle, dates)
	case domain.EventReturnOverdue:
		title = "Return Overdue"
		body = fmt.Sprintf("Your booking of %s ended on %s. Please return the car as soon as possible.", vehicle, payload["end_date"])
	case domain.EventPaymentCaptured:
		title = "Payment Received"
		body = fmt.Sprintf("The renter paid %s for the booking of %s from %s.", payload["amount"], vehicle, dates)
	default:
		title = "Booking Update"
		body = "One of your bookings was updated."
	}
	if reason := payload["reason"]; reason != "" {
		body += "\n\nReason: " + reason
	}
	return title, body
}
