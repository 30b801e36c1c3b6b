package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/lifecycle"
	"carrental-backend/internal/lock"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/metrics"
	"carrental-backend/internal/payment"
	"carrental-backend/internal/repository"
	"carrental-backend/internal/storage"
	"carrental-backend/internal/utils"

	"github.com/google/uuid"
)

// BookingOptions carries the tunables of the booking service. Zero values
// fall back to the defaults below.
type BookingOptions struct {
	Pricing        utils.PricingPolicy
	Currency       string
	PaymentTimeout time.Duration
	SweepBatchSize int32
	PhotoURLExpiry time.Duration
	Metrics        *metrics.Metrics
	// Now is the service clock. Tests pin it.
	Now func() time.Time
}

func (o *BookingOptions) applyDefaults() {
	if o.Pricing.InsurancePerDayCents == nil {
		o.Pricing = utils.DefaultPricingPolicy()
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.PaymentTimeout <= 0 {
		o.PaymentTimeout = 10 * time.Second
	}
	if o.SweepBatchSize <= 0 {
		o.SweepBatchSize = 100
	}
	if o.PhotoURLExpiry <= 0 {
		o.PhotoURLExpiry = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	vehicleRepo repository.VehicleRepository
	gateway     payment.Gateway
	locker      lock.Locker
	notifier    Notifier
	photos      storage.PhotoStorage
	machine     *lifecycle.Machine
	opts        BookingOptions
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	gateway payment.Gateway,
	locker lock.Locker,
	notifier Notifier,
	photos storage.PhotoStorage,
	machine *lifecycle.Machine,
	opts BookingOptions,
) BookingService {
	opts.applyDefaults()
	return &bookingService{
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		gateway:     gateway,
		locker:      locker,
		notifier:    notifier,
		photos:      photos,
		machine:     machine,
		opts:        opts,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	const method = "BookingService.CreateBooking"
	logger.EnterMethod(method, "renterID", actor.UserID, "vehicleID", req.VehicleID)

	b, err := s.createBooking(ctx, actor, req)
	s.opts.Metrics.ObserveTransition(string(lifecycle.ActionCreate), resultLabel(err))
	if err != nil {
		logger.ExitMethodWithError(method, err, "renterID", actor.UserID, "vehicleID", req.VehicleID)
		return nil, err
	}
	logger.ExitMethod(method, "bookingID", b.ID)
	return b, nil
}

func (s *bookingService) createBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if actor.UserID == "" || actor.Role == domain.RoleSystem {
		return nil, domain.NewNotAuthorizedError("only a renter can create a booking")
	}
	actor.Role = domain.RoleRenter

	if req.VehicleID == "" {
		return nil, domain.NewValidationError("vehicle id is required")
	}
	option := req.InsuranceOption
	if option == "" {
		option = domain.InsuranceBasic
	}
	if !option.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown insurance option: %s", req.InsuranceOption))
	}

	now := s.opts.Now()
	start, end, days, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if start.Before(startOfDay(now)) {
		return nil, domain.NewValidationError("start date is in the past")
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, repoError(err, "vehicle not found")
	}

	pricing, err := s.price(vehicle, days, option)
	if err != nil {
		return nil, err
	}

	pickup := req.PickupLocation
	if pickup == "" {
		pickup = vehicle.Location
	}
	ret := req.ReturnLocation
	if ret == "" {
		ret = pickup
	}

	draft := &domain.Booking{
		VehicleID:         vehicle.ID,
		RenterID:          actor.UserID,
		OwnerID:           vehicle.OwnerID,
		StartDate:         start,
		EndDate:           end,
		DurationDays:      pricing.DurationDays,
		PickupLocation:    pickup,
		ReturnLocation:    ret,
		Currency:          s.currencyOf(vehicle),
		BasePriceCents:    pricing.BasePriceCents,
		InsuranceFeeCents: pricing.InsuranceFeeCents,
		ServiceFeeCents:   pricing.ServiceFeeCents,
		TotalPriceCents:   pricing.TotalPriceCents,
		DepositCents:      pricing.DepositCents,
		InsuranceOption:   option,
	}
	b, effects, err := s.machine.Create(draft, actor, now)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.VehicleKey(vehicle.ID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	if err := s.bookingRepo.CreateIfAvailable(ctx, b); err != nil {
		if errors.Is(err, domain.ErrAvailabilityConflict) {
			s.opts.Metrics.ObserveConflict()
			return nil, domain.NewError(domain.ErrorKindAvailabilityConflict, "vehicle is not available for the requested dates", err)
		}
		return nil, domain.NewPersistenceError("failed to save booking", err)
	}

	s.dispatch(ctx, b, vehicle, effects)
	return b, nil
}

func (s *bookingService) AcceptBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	return s.run(ctx, actor, bookingID, lifecycle.ActionAccept, lifecycle.Params{}, "")
}

func (s *bookingService) RejectBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	return s.run(ctx, actor, bookingID, lifecycle.ActionReject, lifecycle.Params{Reason: strings.TrimSpace(reason)}, "")
}

func (s *bookingService) ConfirmPayment(ctx context.Context, actor domain.Actor, bookingID, paymentMethodRef string) (*domain.Booking, error) {
	if strings.TrimSpace(paymentMethodRef) == "" {
		return nil, domain.NewValidationError("payment method is required")
	}
	return s.run(ctx, actor, bookingID, lifecycle.ActionConfirmPayment, lifecycle.Params{}, paymentMethodRef)
}

func (s *bookingService) RecordPickup(ctx context.Context, actor domain.Actor, bookingID string, checklist domain.Checklist) (*domain.Booking, error) {
	if err := s.checkUploadedPhotos(ctx, bookingID, checklist.PhotoKeys); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bookingID, lifecycle.ActionPickup, lifecycle.Params{Checklist: &checklist}, "")
}

func (s *bookingService) RecordReturn(ctx context.Context, actor domain.Actor, bookingID string, checklist domain.Checklist) (*domain.Booking, error) {
	if err := s.checkUploadedPhotos(ctx, bookingID, checklist.PhotoKeys); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bookingID, lifecycle.ActionReturn, lifecycle.Params{Checklist: &checklist}, "")
}

func (s *bookingService) CancelBooking(ctx context.Context, actor domain.Actor, bookingID, reason string) (*domain.Booking, error) {
	return s.run(ctx, actor, bookingID, lifecycle.ActionCancel, lifecycle.Params{Reason: strings.TrimSpace(reason)}, "")
}

// run wraps transition with tracing and metrics.
func (s *bookingService) run(ctx context.Context, actor domain.Actor, bookingID string, action lifecycle.Action, p lifecycle.Params, paymentMethodRef string) (*domain.Booking, error) {
	method := "BookingService." + string(action)
	logger.EnterMethod(method, "bookingID", bookingID, "actorID", actor.UserID)

	b, err := s.transition(ctx, actor, bookingID, action, p, paymentMethodRef)
	s.opts.Metrics.ObserveTransition(string(action), resultLabel(err))
	if err != nil {
		logger.ExitMethodWithError(method, err, "bookingID", bookingID, "actorID", actor.UserID)
		return nil, err
	}
	logger.ExitMethod(method, "bookingID", bookingID, "status", b.Status)
	return b, nil
}

// transition loads the booking under its lock, applies action, executes the
// payment effects, persists with a compare-and-swap and then notifies.
func (s *bookingService) transition(ctx context.Context, actor domain.Actor, bookingID string, action lifecycle.Action, p lifecycle.Params, paymentMethodRef string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, domain.NewValidationError("booking id is required")
	}

	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, lockError(err)
	}
	defer unlock()

	current, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, repoError(err, "booking not found")
	}
	actor, err = lifecycle.ResolveActor(current, actor)
	if err != nil {
		return nil, err
	}

	next, effects, err := s.machine.Apply(current, action, actor, s.opts.Now(), p)
	if err != nil {
		return nil, err
	}

	paid, err := s.runPaymentEffects(ctx, current, next, effects, paymentMethodRef)
	if err != nil {
		return nil, err
	}

	if err := s.bookingRepo.UpdateIfUnchanged(ctx, next, current.Status, current.UpdatedAt); err != nil {
		if paid.captured != "" {
			s.compensateCapture(ctx, next, paid.captured)
		}
		if paid.refundedCents > 0 {
			logger.WithBooking(ctx, next.ID).Error("Refund executed but booking update failed, a retry replays the refund key",
				"transactionRef", current.PaymentTransactionRef, "amount", paid.refundedCents,
				"idempotencyKey", paid.refundKey, "error", err)
		}
		if errors.Is(err, domain.ErrStaleBooking) {
			return nil, domain.NewError(domain.ErrorKindInvalidTransition, "booking was changed by another request", err)
		}
		return nil, domain.NewPersistenceError("failed to update booking", err)
	}

	s.dispatch(ctx, next, nil, effects)
	return next, nil
}

type paymentOutcome struct {
	captured      string
	refundedCents int64
	refundKey     string
}

// chargeKey is unique per attempt so a retry after a compensated capture is
// never answered with the refunded charge.
func chargeKey(b *domain.Booking) string {
	return "charge-" + b.ID + "-" + uuid.NewString()
}

// refundKey is stable for a booking version. Retrying a cancel whose update
// failed replays the executed refund instead of paying out again.
func refundKey(b *domain.Booking) string {
	return "refund-" + b.ID + "-" + strconv.FormatInt(b.UpdatedAt.UnixNano(), 10)
}

// runPaymentEffects executes captures and refunds before anything is
// persisted.
func (s *bookingService) runPaymentEffects(ctx context.Context, current, next *domain.Booking, effects []lifecycle.Effect, paymentMethodRef string) (paymentOutcome, error) {
	var out paymentOutcome
	for _, e := range effects {
		if !e.IsPayment() {
			continue
		}
		payCtx, cancel := context.WithTimeout(ctx, s.opts.PaymentTimeout)
		start := time.Now()

		switch e.Kind {
		case lifecycle.EffectCapturePayment:
			res, err := s.gateway.AuthorizeAndCharge(payCtx, payment.ChargeRequest{
				BookingID:        current.ID,
				AmountCents:      e.AmountCents,
				Currency:         current.Currency,
				PaymentMethodRef: paymentMethodRef,
				IdempotencyKey:   chargeKey(current),
			})
			s.opts.Metrics.ObserveGateway("charge", start)
			cancel()
			if err != nil {
				s.opts.Metrics.ObservePaymentFailure("charge")
				return paymentOutcome{}, domain.NewPaymentFailedError("payment could not be completed", err)
			}
			next.PaymentTransactionRef = res.TransactionRef
			out.captured = res.TransactionRef

		case lifecycle.EffectRefund:
			key := refundKey(current)
			err := s.gateway.Refund(payCtx, payment.RefundRequest{
				TransactionRef: current.PaymentTransactionRef,
				AmountCents:    e.AmountCents,
				IdempotencyKey: key,
			})
			s.opts.Metrics.ObserveGateway("refund", start)
			cancel()
			if err != nil {
				s.opts.Metrics.ObservePaymentFailure("refund")
				return paymentOutcome{}, domain.NewPaymentFailedError("refund could not be completed", err)
			}
			out.refundedCents += e.AmountCents
			out.refundKey = key

		default:
			cancel()
		}
	}
	return out, nil
}

// compensateCapture refunds a charge whose booking update was lost.
func (s *bookingService) compensateCapture(ctx context.Context, b *domain.Booking, transactionRef string) {
	log := logger.WithBooking(ctx, b.ID)
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PaymentTimeout)
	defer cancel()
	err := s.gateway.Refund(refundCtx, payment.RefundRequest{
		TransactionRef: transactionRef,
		AmountCents:    b.TotalPriceCents,
		IdempotencyKey: "compensate-" + transactionRef,
	})
	if err != nil {
		s.opts.Metrics.ObservePaymentFailure("compensate")
		log.Error("Failed to refund charge of unsaved booking, manual action required",
			"transactionRef", transactionRef, "amount", b.TotalPriceCents, "error", err)
		return
	}
	log.Warn("Refunded charge of unsaved booking", "transactionRef", transactionRef)
}

// dispatch runs the notify effects of a committed transition. It outlives a
// cancelled request, and delivery failures are only logged.
func (s *bookingService) dispatch(ctx context.Context, b *domain.Booking, vehicle *domain.Vehicle, effects []lifecycle.Effect) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithBooking(ctx, b.ID)
	for _, e := range effects {
		if e.Kind != lifecycle.EffectNotify || e.UserID == "" {
			continue
		}
		if vehicle == nil {
			vehicle, _ = s.vehicleRepo.GetByID(ctx, b.VehicleID)
		}
		payload := map[string]string{
			"booking_id": b.ID,
			"vehicle_id": b.VehicleID,
			"start_date": b.StartDate.Format(dateLayout),
			"end_date":   b.EndDate.Format(dateLayout),
			"status":     string(b.Status),
			"amount":     formatCents(b.TotalPriceCents, b.Currency),
		}
		if vehicle != nil {
			payload["vehicle_title"] = vehicle.Title
		}
		if e.Reason != "" {
			payload["reason"] = e.Reason
		}
		if err := s.notifier.Notify(ctx, e.UserID, e.Event, payload); err != nil {
			log.Warn("Failed to notify user", "userID", e.UserID, "event", e.Event, "error", err)
		}
	}
}

func (s *bookingService) GetBooking(ctx context.Context, actor domain.Actor, bookingID string) (*domain.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, repoError(err, "booking not found")
	}
	if _, err := lifecycle.ResolveActor(b, actor); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) ListRentals(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if actor.UserID == "" {
		return nil, 0, domain.NewNotAuthorizedError("user is required")
	}
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := s.bookingRepo.ListByRenter(ctx, actor.UserID, status, page, pageSize)
	if err != nil {
		return nil, 0, repoError(err, "")
	}
	return list, total, nil
}

func (s *bookingService) ListLendings(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if actor.UserID == "" {
		return nil, 0, domain.NewNotAuthorizedError("user is required")
	}
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := s.bookingRepo.ListByOwner(ctx, actor.UserID, status, page, pageSize)
	if err != nil {
		return nil, 0, repoError(err, "")
	}
	return list, total, nil
}

// IsAvailable reports whether no occupying booking of the vehicle overlaps
// [start, end]. A failed lookup is an error, never a silent false.
func (s *bookingService) IsAvailable(ctx context.Context, vehicleID string, start, end time.Time) (bool, error) {
	if vehicleID == "" {
		return false, domain.NewValidationError("vehicle id is required")
	}
	if !end.After(start) {
		return false, domain.NewValidationError("end date must be after start date")
	}
	busy, err := s.bookingRepo.HasOverlap(ctx, vehicleID, start, end, "")
	if err != nil {
		return false, domain.NewPersistenceError("failed to check availability", err)
	}
	return !busy, nil
}

func (s *bookingService) QuotePrice(ctx context.Context, vehicleID, startDate, endDate string, option domain.InsuranceOption) (*utils.PriceBreakdown, error) {
	if option == "" {
		option = domain.InsuranceBasic
	}
	if !option.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown insurance option: %s", option))
	}
	_, _, days, err := parseRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, repoError(err, "vehicle not found")
	}
	pricing, err := s.price(vehicle, days, option)
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// PreviewCancellation computes what cancelling now would refund without
// changing the booking.
func (s *bookingService) PreviewCancellation(ctx context.Context, actor domain.Actor, bookingID string) (*domain.CancellationRecord, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, repoError(err, "booking not found")
	}
	actor, err = lifecycle.ResolveActor(b, actor)
	if err != nil {
		return nil, err
	}
	if !lifecycle.Allowed(b.Status, lifecycle.ActionCancel, actor.Role) {
		if b.Status.IsTerminal() {
			return nil, domain.NewInvalidTransitionError(fmt.Sprintf("booking is %s and cannot be cancelled", b.Status))
		}
		return nil, domain.NewNotAuthorizedError(fmt.Sprintf("%s cannot cancel a %s booking", actor.Role, b.Status))
	}
	rec := utils.CalculateCancellation(b, s.opts.Now(), s.machine.CancellationPolicy())
	return &rec, nil
}

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".webp": true}

func (s *bookingService) RequestChecklistPhotoUpload(ctx context.Context, actor domain.Actor, bookingID, filename, contentType string) (*PhotoUpload, error) {
	ext := strings.ToLower(path.Ext(filename))
	if !photoExtensions[ext] {
		return nil, domain.NewValidationError("unsupported photo type: " + filename)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.NewValidationError("content type must be an image")
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, repoError(err, "booking not found")
	}
	if _, err := lifecycle.ResolveActor(b, actor); err != nil {
		return nil, err
	}
	if b.Status != domain.BookingStatusConfirmed && b.Status != domain.BookingStatusInProgress {
		return nil, domain.NewInvalidTransitionError(fmt.Sprintf("photos cannot be added to a %s booking", b.Status))
	}

	key := photoPrefix(b.ID) + "checklists/" + uuid.NewString() + ext
	expiresAt := s.opts.Now().Add(s.opts.PhotoURLExpiry)

	logger.ExternalServiceCall("storage", "presign_upload", "key", key)
	url, err := s.photos.GeneratePresignedUploadURL(ctx, key, contentType, s.opts.PhotoURLExpiry)
	logger.ExternalServiceResult("storage", "presign_upload", err, "key", key)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to prepare photo upload", err)
	}
	return &PhotoUpload{Key: key, UploadURL: url, ExpiresAt: expiresAt.Unix()}, nil
}

func (s *bookingService) GetChecklistPhotoURL(ctx context.Context, actor domain.Actor, bookingID, key string) (string, error) {
	if err := validatePhotoKeys(bookingID, []string{key}); err != nil {
		return "", err
	}
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return "", repoError(err, "booking not found")
	}
	if _, err := lifecycle.ResolveActor(b, actor); err != nil {
		return "", err
	}
	exists, _, err := s.photos.FileExists(ctx, key)
	if err != nil {
		return "", domain.NewPersistenceError("failed to look up photo", err)
	}
	if !exists {
		return "", domain.NewError(domain.ErrorKindNotFound, "photo not found", nil)
	}
	url, err := s.photos.GeneratePresignedDownloadURL(ctx, key, s.opts.PhotoURLExpiry)
	if err != nil {
		return "", domain.NewPersistenceError("failed to prepare photo download", err)
	}
	return url, nil
}

func (s *bookingService) ExpirePendingBookings(ctx context.Context) (int, error) {
	const method = "BookingService.ExpirePendingBookings"
	logger.EnterMethod(method)

	cutoff := s.opts.Now().Add(-s.machine.ExpiryWindow())
	expired := 0
	var firstErr error
	for {
		batch, err := s.bookingRepo.ListPendingCreatedBefore(ctx, cutoff, s.opts.SweepBatchSize)
		if err != nil {
			err = domain.NewPersistenceError("failed to list pending bookings", err)
			logger.ExitMethodWithError(method, err, "expired", expired)
			return expired, err
		}

		progressed := 0
		for _, b := range batch {
			if ctx.Err() != nil {
				logger.ExitMethodWithError(method, ctx.Err(), "expired", expired)
				return expired, ctx.Err()
			}
			_, err := s.run(ctx, domain.SystemActor, b.ID, lifecycle.ActionExpire, lifecycle.Params{}, "")
			switch {
			case err == nil:
				progressed++
			case domain.IsKind(err, domain.ErrorKindInvalidTransition):
				// Accepted, cancelled or expired by someone else since it was listed.
				progressed++
				continue
			default:
				logger.Warn("Failed to expire booking", "bookingID", b.ID, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			expired++
		}

		if int32(len(batch)) < s.opts.SweepBatchSize || progressed == 0 {
			break
		}
	}

	s.opts.Metrics.ObserveExpired(expired)
	if firstErr != nil {
		logger.ExitMethodWithError(method, firstErr, "expired", expired)
		return expired, firstErr
	}
	logger.ExitMethod(method, "expired", expired)
	return expired, nil
}

func (s *bookingService) SendOverdueReminders(ctx context.Context) (int, error) {
	const method = "BookingService.SendOverdueReminders"
	logger.EnterMethod(method)

	cutoff := startOfDay(s.opts.Now())
	sent := 0
	for offset := int32(0); ; offset += s.opts.SweepBatchSize {
		batch, err := s.bookingRepo.ListInProgressEndedBefore(ctx, cutoff, s.opts.SweepBatchSize, offset)
		if err != nil {
			err = domain.NewPersistenceError("failed to list overdue bookings", err)
			logger.ExitMethodWithError(method, err, "sent", sent)
			return sent, err
		}
		for i := range batch {
			if ctx.Err() != nil {
				logger.ExitMethodWithError(method, ctx.Err(), "sent", sent)
				return sent, ctx.Err()
			}
			b := &batch[i]
			s.dispatch(ctx, b, nil, []lifecycle.Effect{
				{Kind: lifecycle.EffectNotify, UserID: b.RenterID, Event: domain.EventReturnOverdue},
			})
			sent++
		}
		if int32(len(batch)) < s.opts.SweepBatchSize {
			break
		}
	}

	logger.ExitMethod(method, "sent", sent)
	return sent, nil
}

func (s *bookingService) price(vehicle *domain.Vehicle, days int, option domain.InsuranceOption) (utils.PriceBreakdown, error) {
	var depositOverride int64
	if vehicle.SecurityDepositCents != nil {
		depositOverride = *vehicle.SecurityDepositCents
	}
	return utils.ComputePricing(vehicle.PricePerDayCents, days, option, depositOverride, s.opts.Pricing)
}

func (s *bookingService) currencyOf(v *domain.Vehicle) string {
	if v.Currency != "" {
		return v.Currency
	}
	return s.opts.Currency
}

const dateLayout = "2006-01-02"

func parseRange(startDate, endDate string) (time.Time, time.Time, int, error) {
	start, err := utils.ParseBookingDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	end, err := utils.ParseBookingDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	days, err := utils.DurationDays(start, end)
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return start, end, days, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func photoPrefix(bookingID string) string {
	return "bookings/" + bookingID + "/"
}

// checkUploadedPhotos accepts only keys of this booking whose upload has
// completed. An empty list is left to the state machine.
func (s *bookingService) checkUploadedPhotos(ctx context.Context, bookingID string, keys []string) error {
	if err := validatePhotoKeys(bookingID, keys); err != nil {
		return err
	}
	for _, k := range keys {
		exists, _, err := s.photos.FileExists(ctx, k)
		if err != nil {
			return domain.NewPersistenceError("failed to look up photo", err)
		}
		if !exists {
			return domain.NewValidationError("photo has not been uploaded: " + k)
		}
	}
	return nil
}

// validatePhotoKeys only accepts keys issued for this booking.
func validatePhotoKeys(bookingID string, keys []string) error {
	prefix := photoPrefix(bookingID)
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) || strings.Contains(k, "..") {
			return domain.NewValidationError("photo key does not belong to this booking: " + k)
		}
	}
	return nil
}

func formatCents(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d %s", sign, strconv.FormatInt(cents/100, 10), cents%100, currency)
}

func lockError(err error) error {
	if errors.Is(err, lock.ErrTimeout) {
		return domain.NewPersistenceError("booking is busy, retry later", err)
	}
	return domain.NewPersistenceError("failed to acquire lock", err)
}

// repoError labels a repository failure. Already labelled errors pass through.
func repoError(err error, notFoundMsg string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewError(domain.ErrorKindNotFound, notFoundMsg, err)
	}
	return domain.NewPersistenceError("storage operation failed", err)
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}
