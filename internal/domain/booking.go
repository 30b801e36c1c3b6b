package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusExpired    BookingStatus = "expired"
)

// legacyStatuses maps values written by older clients onto the closed set.
var legacyStatuses = map[string]BookingStatus{
	"accepted": BookingStatusConfirmed,
	"active":   BookingStatusInProgress,
}

var knownStatuses = map[BookingStatus]bool{
	BookingStatusPending:    true,
	BookingStatusConfirmed:  true,
	BookingStatusInProgress: true,
	BookingStatusCompleted:  true,
	BookingStatusRejected:   true,
	BookingStatusCancelled:  true,
	BookingStatusExpired:    true,
}

// ParseBookingStatus converts a stored or user supplied value into a BookingStatus.
func ParseBookingStatus(s string) (BookingStatus, error) {
	if st, ok := legacyStatuses[s]; ok {
		return st, nil
	}
	st := BookingStatus(s)
	if !knownStatuses[st] {
		return "", NewValidationError("unknown booking status: " + s)
	}
	return st, nil
}

// IsTerminal reports whether no further status transitions are possible.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusRejected, BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// IsOccupying reports whether a booking in this status blocks the vehicle's calendar.
func (s BookingStatus) IsOccupying() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress:
		return true
	}
	return false
}

// StoredForms lists every value a row in status s may carry, legacy ones included.
func (s BookingStatus) StoredForms() []string {
	forms := []string{string(s)}
	for legacy, st := range legacyStatuses {
		if st == s {
			forms = append(forms, legacy)
		}
	}
	return forms
}

// OccupyingStatuses lists the statuses that hold a vehicle, in storage form.
func OccupyingStatuses() []string {
	var out []string
	for _, s := range []BookingStatus{BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress} {
		out = append(out, s.StoredForms()...)
	}
	return out
}

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPreauthorized PaymentStatus = "preauthorized"
	PaymentStatusCharged       PaymentStatus = "charged"
	PaymentStatusRefunded      PaymentStatus = "refunded"
	PaymentStatusPartialRefund PaymentStatus = "partial_refund"
	PaymentStatusFailed        PaymentStatus = "failed"
)

type InsuranceOption string

const (
	InsuranceBasic    InsuranceOption = "basic"
	InsuranceStandard InsuranceOption = "standard"
	InsurancePremium  InsuranceOption = "premium"
)

func (o InsuranceOption) IsValid() bool {
	switch o {
	case InsuranceBasic, InsuranceStandard, InsurancePremium:
		return true
	}
	return false
}

// Checklist is the condition report captured at pickup or return.
type Checklist struct {
	Notes       string    `json:"notes"`
	DamageNotes string    `json:"damage_notes"`
	FuelLevel   int       `json:"fuel_level"`
	Mileage     int64     `json:"mileage"`
	PhotoKeys   []string  `json:"photo_keys"`
	RecordedBy  string    `json:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// CancellationRecord is derived by the refund policy when a booking is cancelled.
type CancellationRecord struct {
	CancellationDate  time.Time `json:"cancellation_date"`
	DaysBefore        int       `json:"days_before"`
	DisplayDaysBefore int       `json:"display_days_before"`
	RefundPercentage  int       `json:"refund_percentage"`
	FeePercentage     int       `json:"fee_percentage"`
	RefundAmountCents int64     `json:"refund_amount_cents"`
	FeeAmountCents    int64     `json:"fee_amount_cents"`
	NetRefundCents    int64     `json:"net_refund_cents"`
}

type Booking struct {
	ID             string    `json:"id"`
	VehicleID      string    `json:"vehicle_id"`
	RenterID       string    `json:"renter_id"`
	OwnerID        string    `json:"owner_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DurationDays   int       `json:"duration_days"`
	PickupLocation string    `json:"pickup_location"`
	ReturnLocation string    `json:"return_location"`
	// Price snapshot, captured from the vehicle when the booking is created.
	Currency              string              `json:"currency"`
	BasePriceCents        int64               `json:"base_price_cents"`
	InsuranceFeeCents     int64               `json:"insurance_fee_cents"`
	ServiceFeeCents       int64               `json:"service_fee_cents"`
	TotalPriceCents       int64               `json:"total_price_cents"`
	DepositCents          int64               `json:"deposit_cents"`
	InsuranceOption       InsuranceOption     `json:"insurance_option"`
	Status                BookingStatus       `json:"status"`
	PaymentStatus         PaymentStatus       `json:"payment_status"`
	PaymentTransactionRef string              `json:"payment_transaction_ref,omitempty"`
	PickupChecklist       *Checklist          `json:"pickup_checklist,omitempty"`
	ReturnChecklist       *Checklist          `json:"return_checklist,omitempty"`
	ContactShared         bool                `json:"contact_shared"`
	RejectionReason       string              `json:"rejection_reason,omitempty"`
	CancellationReason    string              `json:"cancellation_reason,omitempty"`
	CancelledBy           string              `json:"cancelled_by,omitempty"`
	Cancellation          *CancellationRecord `json:"cancellation,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

// Clone returns a deep copy so a transition never aliases the caller's booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.PickupChecklist = b.PickupChecklist.clone()
	c.ReturnChecklist = b.ReturnChecklist.clone()
	if b.Cancellation != nil {
		rec := *b.Cancellation
		c.Cancellation = &rec
	}
	return &c
}

func (c *Checklist) clone() *Checklist {
	if c == nil {
		return nil
	}
	out := *c
	out.PhotoKeys = append([]string(nil), c.PhotoKeys...)
	return &out
}

// IsParty reports whether the user is the renter or the owner of the booking.
func (b *Booking) IsParty(userID string) bool {
	return userID != "" && (userID == b.RenterID || userID == b.OwnerID)
}

// CounterpartOf returns the other party of the booking.
func (b *Booking) CounterpartOf(userID string) string {
	if userID == b.RenterID {
		return b.OwnerID
	}
	return b.RenterID
}
