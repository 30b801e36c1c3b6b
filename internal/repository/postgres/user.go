package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, COALESCE(phone_number, ''), name, COALESCE(push_token, ''), created_on FROM users WHERE id = $1`
	logger.DatabaseCall("SELECT", "users", "userID", id)

	var createdOn time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.Name, &u.PushToken, &createdOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "userID", id)
		return nil, err
	}
	u.CreatedOn = createdOn.Format("2006-01-02")
	return u, nil
}
