package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT id, owner_id, title, price_per_day_cents, security_deposit_cents, COALESCE(location, ''), currency
	          FROM vehicles WHERE id = $1`
	logger.DatabaseCall("SELECT", "vehicles", "vehicleID", id)

	var deposit sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.OwnerID, &v.Title, &v.PricePerDayCents, &deposit, &v.Location, &v.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "vehicleID", id)
		return nil, err
	}
	if deposit.Valid {
		v.SecurityDepositCents = &deposit.Int64
	}
	return v, nil
}
