package lifecycle

import (
	"fmt"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/utils"
)

type Action string

const (
	ActionCreate         Action = "create"
	ActionAccept         Action = "accept"
	ActionReject         Action = "reject"
	ActionCancel         Action = "cancel"
	ActionExpire         Action = "expire"
	ActionConfirmPayment Action = "confirm_payment"
	ActionPickup         Action = "pickup"
	ActionReturn         Action = "return"
)

// Actions lists every action that can be applied to an existing booking.
func Actions() []Action {
	return []Action{
		ActionAccept, ActionReject, ActionCancel, ActionExpire,
		ActionConfirmPayment, ActionPickup, ActionReturn,
	}
}

type transition struct {
	to    domain.BookingStatus
	roles []domain.Role
}

func (t transition) allows(role domain.Role) bool {
	for _, r := range t.roles {
		if r == role {
			return true
		}
	}
	return false
}

var (
	ownerOnly  = []domain.Role{domain.RoleOwner}
	renterOnly = []domain.Role{domain.RoleRenter}
	parties    = []domain.Role{domain.RoleRenter, domain.RoleOwner}
	systemOnly = []domain.Role{domain.RoleSystem}
)

// transitions is the only place a status change is declared legal.
var transitions = map[domain.BookingStatus]map[Action]transition{
	domain.BookingStatusPending: {
		ActionAccept: {to: domain.BookingStatusConfirmed, roles: ownerOnly},
		ActionReject: {to: domain.BookingStatusRejected, roles: ownerOnly},
		ActionCancel: {to: domain.BookingStatusCancelled, roles: renterOnly},
		ActionExpire: {to: domain.BookingStatusExpired, roles: systemOnly},
	},
	domain.BookingStatusConfirmed: {
		ActionConfirmPayment: {to: domain.BookingStatusConfirmed, roles: renterOnly},
		ActionCancel:         {to: domain.BookingStatusCancelled, roles: parties},
		ActionPickup:         {to: domain.BookingStatusInProgress, roles: parties},
	},
	domain.BookingStatusInProgress: {
		ActionReturn: {to: domain.BookingStatusCompleted, roles: parties},
	},
}

// Allowed reports whether role may perform action on a booking in status.
func Allowed(status domain.BookingStatus, action Action, role domain.Role) bool {
	t, ok := transitions[status][action]
	return ok && t.allows(role)
}

type EffectKind string

const (
	EffectNotify         EffectKind = "notify"
	EffectCapturePayment EffectKind = "capture_payment"
	EffectRefund         EffectKind = "refund"
)

// Effect is a side effect requested by a transition. Payment effects must
// succeed before the new state is persisted; notifications run after commit.
type Effect struct {
	Kind        EffectKind
	UserID      string
	Event       domain.NotificationEvent
	Reason      string
	AmountCents int64
}

func (e Effect) IsPayment() bool {
	return e.Kind == EffectCapturePayment || e.Kind == EffectRefund
}

// Params carries the action specific input of a transition.
type Params struct {
	Reason    string
	Checklist *domain.Checklist
}

// Machine applies transitions. It holds policy only and never mutates its input.
type Machine struct {
	expiryWindow time.Duration
	cancellation utils.CancellationPolicy
}

func NewMachine(expiryWindow time.Duration, cancellation utils.CancellationPolicy) *Machine {
	return &Machine{expiryWindow: expiryWindow, cancellation: cancellation}
}

func (m *Machine) ExpiryWindow() time.Duration {
	return m.expiryWindow
}

func (m *Machine) CancellationPolicy() utils.CancellationPolicy {
	return m.cancellation
}

// ResolveActor fills in the role a user plays on b. Users that are neither the
// renter nor the owner are not authorized to act on the booking.
func ResolveActor(b *domain.Booking, actor domain.Actor) (domain.Actor, error) {
	if actor.Role == domain.RoleSystem {
		return actor, nil
	}
	switch {
	case actor.UserID == "":
		return actor, domain.NewNotAuthorizedError("actor is required")
	case actor.UserID == b.RenterID:
		actor.Role = domain.RoleRenter
	case actor.UserID == b.OwnerID:
		actor.Role = domain.RoleOwner
	default:
		return actor, domain.NewNotAuthorizedError("user is not a party to this booking")
	}
	return actor, nil
}

// Create validates a new booking draft and puts it in the pending state.
// The draft must already carry its price snapshot.
func (m *Machine) Create(draft *domain.Booking, actor domain.Actor, now time.Time) (*domain.Booking, []Effect, error) {
	if draft == nil {
		return nil, nil, domain.NewValidationError("booking is required")
	}
	if actor.Role == domain.RoleSystem || actor.UserID == "" || actor.UserID != draft.RenterID {
		return nil, nil, domain.NewNotAuthorizedError("only the renter can request a booking")
	}
	if draft.VehicleID == "" || draft.OwnerID == "" {
		return nil, nil, domain.NewValidationError("vehicle and owner are required")
	}
	if draft.RenterID == draft.OwnerID {
		return nil, nil, domain.NewValidationError("owners cannot book their own vehicle")
	}
	if !draft.EndDate.After(draft.StartDate) {
		return nil, nil, domain.NewValidationError("end date must be after start date")
	}
	if draft.DurationDays < 1 {
		return nil, nil, domain.NewValidationError("rental must last at least one day")
	}
	if draft.TotalPriceCents != draft.BasePriceCents+draft.InsuranceFeeCents+draft.ServiceFeeCents {
		return nil, nil, domain.NewValidationError("total price does not match its components")
	}

	next := draft.Clone()
	next.Status = domain.BookingStatusPending
	next.PaymentStatus = domain.PaymentStatusUnpaid
	next.ContactShared = false
	next.PickupChecklist = nil
	next.ReturnChecklist = nil
	next.Cancellation = nil
	next.CreatedAt = now
	next.UpdatedAt = now

	effects := []Effect{{Kind: EffectNotify, UserID: next.OwnerID, Event: domain.EventBookingRequested}}
	return next, effects, nil
}

// Apply runs action against b and returns the next booking with the effects the
// caller must perform. On error the input booking is left untouched.
func (m *Machine) Apply(b *domain.Booking, action Action, actor domain.Actor, now time.Time, p Params) (*domain.Booking, []Effect, error) {
	if b == nil {
		return nil, nil, domain.NewValidationError("booking is required")
	}
	if b.Status.IsTerminal() {
		return nil, nil, domain.NewInvalidTransitionError(fmt.Sprintf("booking is %s and cannot be changed", b.Status))
	}
	t, ok := transitions[b.Status][action]
	if !ok {
		return nil, nil, domain.NewInvalidTransitionError(fmt.Sprintf("cannot %s a %s booking", action, b.Status))
	}
	if !t.allows(actor.Role) || !actsFor(b, actor) {
		return nil, nil, domain.NewNotAuthorizedError(fmt.Sprintf("%s cannot %s this booking", roleName(actor.Role), action))
	}

	next := b.Clone()
	var effects []Effect

	switch action {
	case ActionAccept:
		next.ContactShared = true
		effects = append(effects, Effect{Kind: EffectNotify, UserID: b.RenterID, Event: domain.EventBookingAccepted})

	case ActionReject:
		next.RejectionReason = p.Reason
		effects = append(effects, Effect{Kind: EffectNotify, UserID: b.RenterID, Event: domain.EventBookingRejected, Reason: p.Reason})

	case ActionCancel:
		rec := utils.CalculateCancellation(b, now, m.cancellation)
		next.Cancellation = &rec
		next.CancellationReason = p.Reason
		next.CancelledBy = actor.UserID
		if b.PaymentStatus == domain.PaymentStatusCharged {
			if rec.NetRefundCents > 0 {
				effects = append(effects, Effect{Kind: EffectRefund, AmountCents: rec.NetRefundCents})
			}
			if rec.NetRefundCents == b.TotalPriceCents {
				next.PaymentStatus = domain.PaymentStatusRefunded
			} else {
				next.PaymentStatus = domain.PaymentStatusPartialRefund
			}
		}
		effects = append(effects, Effect{Kind: EffectNotify, UserID: b.CounterpartOf(actor.UserID), Event: domain.EventBookingCancelled, Reason: p.Reason})

	case ActionExpire:
		if now.Sub(b.CreatedAt) < m.expiryWindow {
			return nil, nil, domain.NewInvalidTransitionError("booking has not reached its expiry deadline")
		}
		effects = append(effects, Effect{Kind: EffectNotify, UserID: b.RenterID, Event: domain.EventBookingExpired})

	case ActionConfirmPayment:
		if b.PaymentStatus == domain.PaymentStatusCharged {
			return nil, nil, domain.NewInvalidTransitionError("booking is already paid")
		}
		next.PaymentStatus = domain.PaymentStatusCharged
		effects = append(effects,
			Effect{Kind: EffectCapturePayment, AmountCents: b.TotalPriceCents},
			Effect{Kind: EffectNotify, UserID: b.OwnerID, Event: domain.EventPaymentCaptured},
		)

	case ActionPickup:
		if b.PickupChecklist != nil {
			return nil, nil, domain.NewInvalidTransitionError("pickup checklist already recorded")
		}
		cl, err := stampChecklist(p.Checklist, actor, now)
		if err != nil {
			return nil, nil, err
		}
		next.PickupChecklist = cl

	case ActionReturn:
		if b.ReturnChecklist != nil {
			return nil, nil, domain.NewInvalidTransitionError("return checklist already recorded")
		}
		cl, err := stampChecklist(p.Checklist, actor, now)
		if err != nil {
			return nil, nil, err
		}
		next.ReturnChecklist = cl
	}

	next.Status = t.to
	next.UpdatedAt = advance(b.UpdatedAt, now)
	return next, effects, nil
}

func actsFor(b *domain.Booking, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleRenter:
		return actor.UserID == b.RenterID
	case domain.RoleOwner:
		return actor.UserID == b.OwnerID
	case domain.RoleSystem:
		return true
	}
	return false
}

func roleName(r domain.Role) string {
	if r == "" {
		return "unknown actor"
	}
	return string(r)
}

func stampChecklist(in *domain.Checklist, actor domain.Actor, now time.Time) (*domain.Checklist, error) {
	if in == nil {
		return nil, domain.NewValidationError("checklist is required")
	}
	if in.FuelLevel < 0 || in.FuelLevel > 100 {
		return nil, domain.NewValidationError("fuel level must be between 0 and 100")
	}
	if in.Mileage < 0 {
		return nil, domain.NewValidationError("mileage must not be negative")
	}
	if len(in.PhotoKeys) == 0 {
		return nil, domain.NewValidationError("at least one checklist photo is required")
	}
	cl := *in
	cl.PhotoKeys = append([]string(nil), in.PhotoKeys...)
	cl.RecordedBy = actor.UserID
	cl.RecordedAt = now
	return &cl, nil
}

// advance returns a timestamp strictly after prev. Postgres keeps microseconds.
func advance(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}
