package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// exclusion_violation, raised by the bookings_no_overlap constraint.
const pqExclusionViolation = "23P01"

const bookingColumns = `id, vehicle_id, renter_id, owner_id, start_date, end_date, duration_days,
	pickup_location, return_location, currency, base_price_cents, insurance_fee_cents,
	service_fee_cents, total_price_cents, deposit_cents, insurance_option, status,
	payment_status, payment_transaction_ref, pickup_checklist, return_checklist,
	contact_shared, rejection_reason, cancellation_reason, cancelled_by, cancellation,
	created_at, updated_at`

const overlapQuery = `SELECT count(*) FROM bookings
	WHERE vehicle_id = $1 AND status = ANY($2) AND start_date <= $4 AND end_date >= $3 AND id <> $5`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking) (err error) {
	logger.EnterMethod("bookingRepository.CreateIfAvailable", "vehicleID", b.VehicleID, "renterID", b.RenterID)
	defer func() {
		if err != nil {
			logger.ExitMethodWithError("bookingRepository.CreateIfAvailable", err, "vehicleID", b.VehicleID)
		} else {
			logger.ExitMethod("bookingRepository.CreateIfAvailable", "bookingID", b.ID)
		}
	}()

	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	pickup, err := nullJSON(b.PickupChecklist)
	if err != nil {
		return err
	}
	ret, err := nullJSON(b.ReturnChecklist)
	if err != nil {
		return err
	}
	cancellation, err := nullJSON(b.Cancellation)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Serializes creators of the same vehicle until commit.
	logger.DatabaseCall("LOCK", "pg_advisory_xact_lock", "vehicleID", b.VehicleID)
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.VehicleID); err != nil {
		return fmt.Errorf("lock vehicle %s: %w", b.VehicleID, err)
	}

	var n int
	logger.DatabaseCall("SELECT", "bookings overlap", "vehicleID", b.VehicleID)
	err = tx.QueryRowContext(ctx, overlapQuery, b.VehicleID, pq.Array(domain.OccupyingStatuses()), b.StartDate, b.EndDate, b.ID).Scan(&n)
	logger.DatabaseResult("SELECT", int64(n), err)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if n > 0 {
		return domain.ErrAvailabilityConflict
	}

	query := `INSERT INTO bookings (` + bookingColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`
	logger.DatabaseCall("INSERT", "bookings", "bookingID", b.ID)
	_, err = tx.ExecContext(ctx, query,
		b.ID, b.VehicleID, b.RenterID, b.OwnerID, b.StartDate, b.EndDate, b.DurationDays,
		b.PickupLocation, b.ReturnLocation, b.Currency, b.BasePriceCents, b.InsuranceFeeCents,
		b.ServiceFeeCents, b.TotalPriceCents, b.DepositCents, b.InsuranceOption, b.Status,
		b.PaymentStatus, b.PaymentTransactionRef, pickup, ret,
		b.ContactShared, b.RejectionReason, b.CancellationReason, b.CancelledBy, cancellation,
		b.CreatedAt, b.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "bookingID", b.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqExclusionViolation {
			return domain.ErrAvailabilityConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) HasOverlap(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error) {
	var n int
	logger.DatabaseCall("SELECT", "bookings overlap", "vehicleID", vehicleID)
	err := r.db.QueryRowContext(ctx, overlapQuery, vehicleID, pq.Array(domain.OccupyingStatuses()), start, end, excludeID).Scan(&n)
	logger.DatabaseResult("SELECT", int64(n), err)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return n > 0, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	logger.DatabaseCall("SELECT", "bookings", "bookingID", id)
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err, "bookingID", id)
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) UpdateIfUnchanged(ctx context.Context, b *domain.Booking, prevStatus domain.BookingStatus, prevUpdatedAt time.Time) error {
	logger.EnterMethod("bookingRepository.UpdateIfUnchanged", "bookingID", b.ID, "from", prevStatus, "to", b.Status)

	pickup, err := nullJSON(b.PickupChecklist)
	if err != nil {
		return err
	}
	ret, err := nullJSON(b.ReturnChecklist)
	if err != nil {
		return err
	}
	cancellation, err := nullJSON(b.Cancellation)
	if err != nil {
		return err
	}

	query := `UPDATE bookings SET status=$1, payment_status=$2, payment_transaction_ref=$3, pickup_checklist=$4,
	          return_checklist=$5, contact_shared=$6, rejection_reason=$7, cancellation_reason=$8, cancelled_by=$9,
	          cancellation=$10, updated_at=$11
	          WHERE id=$12 AND status = ANY($13) AND updated_at=$14`
	logger.DatabaseCall("UPDATE", "bookings", "bookingID", b.ID)
	result, err := r.db.ExecContext(ctx, query,
		b.Status, b.PaymentStatus, b.PaymentTransactionRef, pickup,
		ret, b.ContactShared, b.RejectionReason, b.CancellationReason, b.CancelledBy,
		cancellation, b.UpdatedAt,
		b.ID, pq.Array(prevStatus.StoredForms()), prevUpdatedAt)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "bookingID", b.ID)
		logger.ExitMethodWithError("bookingRepository.UpdateIfUnchanged", err, "bookingID", b.ID)
		return fmt.Errorf("update booking: %w", err)
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "bookingID", b.ID)
	if err != nil {
		return err
	}
	if rows == 0 {
		logger.ExitMethodWithError("bookingRepository.UpdateIfUnchanged", domain.ErrStaleBooking, "bookingID", b.ID)
		return domain.ErrStaleBooking
	}
	logger.ExitMethod("bookingRepository.UpdateIfUnchanged", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) ListByRenter(ctx context.Context, renterID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listByParty(ctx, "renter_id", renterID, status, page, pageSize)
}

func (r *bookingRepository) ListByOwner(ctx context.Context, ownerID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.listByParty(ctx, "owner_id", ownerID, status, page, pageSize)
}

// column is one of the fixed party columns, never user input.
func (r *bookingRepository) listByParty(ctx context.Context, column, userID, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	offset := (page - 1) * pageSize
	where := ` FROM bookings WHERE ` + column + ` = $1`

	args := []interface{}{userID}
	argIdx := 2
	if status != "" {
		st, err := domain.ParseBookingStatus(status)
		if err != nil {
			return nil, 0, err
		}
		where += " AND status = ANY($2)"
		args = append(args, pq.Array(st.StoredForms()))
		argIdx++
	}

	var count int32
	logger.DatabaseCall("SELECT", "bookings count", column, userID)
	if err := r.db.QueryRowContext(ctx, "SELECT count(*)"+where, args...).Scan(&count); err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, 0, err
	}

	query := "SELECT " + bookingColumns + where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	bookings, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, count, nil
}

func (r *bookingRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status = ANY($1) AND created_at <= $2 ORDER BY created_at LIMIT $3`
	return r.query(ctx, query, pq.Array(domain.BookingStatusPending.StoredForms()), cutoff, limit)
}

func (r *bookingRepository) ListInProgressEndedBefore(ctx context.Context, cutoff time.Time, limit, offset int32) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status = ANY($1) AND end_date < $2 ORDER BY end_date, id LIMIT $3 OFFSET $4`
	return r.query(ctx, query, pq.Array(domain.BookingStatusInProgress.StoredForms()), cutoff, limit, offset)
}

func (r *bookingRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Booking, error) {
	logger.DatabaseCall("SELECT", "bookings")
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(bookings)), nil)
	return bookings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*domain.Booking, error) {
	var (
		b                         domain.Booking
		status                    string
		pickup, ret, cancellation []byte
	)
	err := s.Scan(&b.ID, &b.VehicleID, &b.RenterID, &b.OwnerID, &b.StartDate, &b.EndDate, &b.DurationDays,
		&b.PickupLocation, &b.ReturnLocation, &b.Currency, &b.BasePriceCents, &b.InsuranceFeeCents,
		&b.ServiceFeeCents, &b.TotalPriceCents, &b.DepositCents, &b.InsuranceOption, &status,
		&b.PaymentStatus, &b.PaymentTransactionRef, &pickup, &ret,
		&b.ContactShared, &b.RejectionReason, &b.CancellationReason, &b.CancelledBy, &cancellation,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if b.Status, err = domain.ParseBookingStatus(status); err != nil {
		return nil, err
	}
	if len(pickup) > 0 {
		b.PickupChecklist = &domain.Checklist{}
		if err := json.Unmarshal(pickup, b.PickupChecklist); err != nil {
			return nil, fmt.Errorf("decode pickup checklist: %w", err)
		}
	}
	if len(ret) > 0 {
		b.ReturnChecklist = &domain.Checklist{}
		if err := json.Unmarshal(ret, b.ReturnChecklist); err != nil {
			return nil, fmt.Errorf("decode return checklist: %w", err)
		}
	}
	if len(cancellation) > 0 {
		b.Cancellation = &domain.CancellationRecord{}
		if err := json.Unmarshal(cancellation, b.Cancellation); err != nil {
			return nil, fmt.Errorf("decode cancellation: %w", err)
		}
	}
	return &b, nil
}

// nullJSON encodes v for a jsonb column, mapping nil pointers to NULL.
func nullJSON[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
