package service

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/utils"
)

// CreateBookingRequest is the renter's input for a new booking. Dates are
// yyyy-mm-dd or RFC 3339.
type CreateBookingRequest struct {
	VehicleID       string                 `json:"vehicle_id"`
	StartDate       string                 `json:"start_date"`
	EndDate         string                 `json:"end_date"`
	PickupLocation  string                 `json:"pickup_location"`
	ReturnLocation  string                 `json:"return_location"`
	InsuranceOption domain.InsuranceOption `json:"insurance_option"`
}

// PhotoUpload is handed to a client that attaches photos to a checklist.
type PhotoUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"upload_url"`
	ExpiresAt int64  `json:"expires_at"`
}

// BookingService runs every booking use case. All errors it returns carry a
// domain.ErrorKind.
type BookingService interface {
	CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error)
	AcceptBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error)
	RejectBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error)
	ConfirmPayment(ctx context.Context, actor domain.Actor, bookingID, paymentMethodRef string) (*domain.Booking, error)
	RecordPickup(ctx context.Context, actor domain.Actor, bookingID string, checklist domain.Checklist) (*domain.Booking, error)
	RecordReturn(ctx context.Context, actor domain.Actor, bookingID string, checklist domain.Checklist) (*domain.Booking, error)
	CancelBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error)

	GetBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error)
	ListRentals(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListLendings(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	IsAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error)
	QuotePrice(ctx context.Context, vehicleID, startDate, endDate string, option domain.InsuranceOption) (*utils.PriceBreakdown, error)
	PreviewCancellation(ctx context.Context, actor domain.Actor, bookingID string) (*domain.CancellationRecord, error)
	RequestChecklistPhotoUpload(ctx context.Context, actor domain.Actor, bookingID, filename, contentType string) (*PhotoUpload, error)
	GetChecklistPhotoURL(ctx context.Context, actor domain.Actor, bookingID, key string) (string, error)

	// ExpirePendingBookings expires every pending booking older than the expiry
	// window and returns how many it expired.
	ExpirePendingBookings(ctx context.Context) (int, error)
	// SendOverdueReminders notifies renters whose in-progress booking ended
	// before today. The booking itself is left unchanged.
	SendOverdueReminders(ctx context.Context) (int, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID string, notificationID int32) error
}

// Notifier delivers a booking event to one user.
type Notifier interface {
	Notify(ctx context.Context, userID string, event domain.NotificationEvent, payload map[string]string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, toName, subject, body string) error
}

type PushSender interface {
	Push(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}
