package domain

type NotificationEvent string

const (
	EventBookingRequested NotificationEvent = "BOOKING_REQUESTED"
	EventBookingAccepted  NotificationEvent = "BOOKING_ACCEPTED"
	EventBookingRejected  NotificationEvent = "BOOKING_REJECTED"
	EventBookingCancelled NotificationEvent = "BOOKING_CANCELLED"
	EventBookingExpired   NotificationEvent = "BOOKING_EXPIRED"
	EventPaymentCaptured  NotificationEvent = "PAYMENT_CAPTURED"
	EventReturnOverdue    NotificationEvent = "RETURN_OVERDUE"
)

type Notification struct {
	ID         int32             `json:"id"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  string            `json:"created_on"`
}
