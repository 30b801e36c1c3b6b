package repository

import (
	"context"
	"time"

	"carrental-backend/internal/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// VehicleRepository reads listings owned by the catalog side of the marketplace.
type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
}

type BookingRepository interface {
	// CreateIfAvailable inserts b unless an occupying booking of the same vehicle
	// overlaps its dates, in which case it returns domain.ErrAvailabilityConflict.
	// The check and the insert are atomic. An empty b.ID is assigned.
	CreateIfAvailable(ctx context.Context, b *domain.Booking) error
	HasOverlap(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// UpdateIfUnchanged persists b only if the stored row still has prevStatus and
	// prevUpdatedAt. Otherwise it returns domain.ErrStaleBooking.
	UpdateIfUnchanged(ctx context.Context, b *domain.Booking, prevStatus domain.BookingStatus, prevUpdatedAt time.Time) error
	ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Booking, error)
	// ListInProgressEndedBefore pages through in-progress bookings whose end
	// date is before cutoff, oldest end date first.
	ListInProgressEndedBefore(ctx context.Context, cutoff time.Time, limit, offset int32) ([]domain.Booking, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id int32, userID string) error
}
