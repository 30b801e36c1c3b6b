package postgres

import (
	"database/sql"

	"carrental-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		VehicleRepository:      NewVehicleRepository(db),
		BookingRepository:      NewBookingRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}
