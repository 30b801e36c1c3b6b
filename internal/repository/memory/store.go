// Package memory keeps repositories in process memory. It backs local runs
// without a database and the concurrency tests of the booking service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/lifecycle"
	"carrental-backend/internal/repository"

	"github.com/google/uuid"
)

type Store struct {
	repository.UserRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.NotificationRepository

	users    *userRepository
	vehicles *vehicleRepository
}

func NewStore() *Store {
	users := &userRepository{users: map[string]domain.User{}}
	vehicles := &vehicleRepository{vehicles: map[string]domain.Vehicle{}}
	return &Store{
		UserRepository:         users,
		VehicleRepository:      vehicles,
		BookingRepository:      &bookingRepository{bookings: map[string]*domain.Booking{}},
		NotificationRepository: &notificationRepository{},
		users:                  users,
		vehicles:               vehicles,
	}
}

// PutUser adds or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	s.users.users[u.ID] = u
}

// PutVehicle adds or replaces a vehicle.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.vehicles.mu.Lock()
	defer s.vehicles.mu.Unlock()
	s.vehicles.vehicles[v.ID] = v
}

type userRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

type vehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]domain.Vehicle
}

func (r *vehicleRepository) GetByID(_ context.Context, id string) (*domain.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %s: %w", id, domain.ErrNotFound)
	}
	return &v, nil
}

type bookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
}

func (r *bookingRepository) all() []*domain.Booking {
	out := make([]*domain.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out
}

func (r *bookingRepository) CreateIfAvailable(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, exists := r.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	if lifecycle.FindConflict(r.all(), b.VehicleID, lifecycle.RangeOf(b), b.ID) != nil {
		return domain.ErrAvailabilityConflict
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *bookingRepository) HasOverlap(_ context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lifecycle.FindConflict(r.all(), vehicleID, lifecycle.DateRange{Start: start, End: end}, excludeID) != nil, nil
}

func (r *bookingRepository) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	return b.Clone(), nil
}

func (r *bookingRepository) UpdateIfUnchanged(_ context.Context, b *domain.Booking, prevStatus domain.BookingStatus, prevUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
	}
	if cur.Status != prevStatus || !cur.UpdatedAt.Equal(prevUpdatedAt) {
		return domain.ErrStaleBooking
	}
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *bookingRepository) ListByRenter(_ context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(func(b *domain.Booking) bool { return b.RenterID == renterID }, status, page, pageSize)
}

func (r *bookingRepository) ListByOwner(_ context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(func(b *domain.Booking) bool { return b.OwnerID == ownerID }, status, page, pageSize)
}

func (r *bookingRepository) list(match func(*domain.Booking) bool, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	var want domain.BookingStatus
	if status != "" {
		st, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, 0, err
		}
		want = st
	}

	r.mu.RLock()
	var matched []domain.Booking
	for _, b := range r.bookings {
		if match(b) && (want == "" || b.Status == want) {
			matched = append(matched, *b.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int32(len(matched))
	offset := (page - 1) * pageSize
	if offset < 0 || offset >= total {
		return []domain.Booking{}, total, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *bookingRepository) ListPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int32) ([]domain.Booking, error) {
	r.mu.RLock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusPending && !b.CreatedAt.After(cutoff) {
			out = append(out, *b.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *bookingRepository) ListInProgressEndedBefore(_ context.Context, cutoff time.Time, limit, offset int32) ([]domain.Booking, error) {
	r.mu.RLock()
	var out []domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusInProgress && b.EndDate.Before(cutoff) {
			out = append(out, *b.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].EndDate.Before(out[j].EndDate)
	})
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type notificationRepository struct {
	mu     sync.Mutex
	nextID int32
	notes  []domain.Notification
}

func (r *notificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	n.CreatedOn = time.Now().Format("2006-01-02")
	r.notes = append(r.notes, *n)
	return nil
}

func (r *notificationRepository) List(_ context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var mine []domain.Notification
	for i := len(r.notes) - 1; i >= 0; i-- {
		if r.notes[i].UserID == userID {
			mine = append(mine, r.notes[i])
		}
	}
	total := int32(len(mine))
	if offset >= total {
		return []domain.Notification{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return mine[offset:end], total, nil
}

func (r *notificationRepository) MarkAsRead(_ context.Context, id int32, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notes {
		if r.notes[i].ID == id && r.notes[i].UserID == userID {
			r.notes[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
}
