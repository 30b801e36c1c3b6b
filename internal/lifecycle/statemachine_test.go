package lifecycle

import (
	"testing"
	"time"

	"carrental-backend/internal/domain"
	"carrental-backend/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0     = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	renter = domain.Actor{UserID: "renter-1", Role: domain.RoleRenter}
	owner  = domain.Actor{UserID: "owner-1", Role: domain.RoleOwner}
)

func newMachine() *Machine {
	return NewMachine(24*time.Hour, utils.DefaultCancellationPolicy())
}

func bookingIn(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:              "b-1",
		VehicleID:       "v-1",
		RenterID:        renter.UserID,
		OwnerID:         owner.UserID,
		StartDate:       t0.Add(10 * 24 * time.Hour),
		EndDate:         t0.Add(13 * 24 * time.Hour),
		DurationDays:    3,
		BasePriceCents:  150000,
		ServiceFeeCents: 15000,
		TotalPriceCents: 165000,
		Status:          status,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		CreatedAt:       t0,
		UpdatedAt:       t0,
	}
}

func TestMachine_Create(t *testing.T) {
	m := newMachine()

	t.Run("Success", func(t *testing.T) {
		draft := bookingIn("")
		b, effects, err := m.Create(draft, renter, t0)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, b.Status)
		assert.Equal(t, domain.PaymentStatusUnpaid, b.PaymentStatus)
		assert.False(t, b.ContactShared)
		assert.Equal(t, t0, b.CreatedAt)
		require.Len(t, effects, 1)
		assert.Equal(t, Effect{Kind: EffectNotify, UserID: owner.UserID, Event: domain.EventBookingRequested}, effects[0])
	})

	t.Run("Owner books own vehicle", func(t *testing.T) {
		draft := bookingIn("")
		draft.RenterID = owner.UserID
		_, _, err := m.Create(draft, owner, t0)
		assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
	})

	t.Run("Actor is not the renter", func(t *testing.T) {
		_, _, err := m.Create(bookingIn(""), owner, t0)
		assert.True(t, domain.IsKind(err, domain.ErrorKindNotAuthorized))
	})

	t.Run("End before start", func(t *testing.T) {
		draft := bookingIn("")
		draft.EndDate = draft.StartDate
		_, _, err := m.Create(draft, renter, t0)
		assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
	})

	t.Run("Inconsistent total", func(t *testing.T) {
		draft := bookingIn("")
		draft.TotalPriceCents++
		_, _, err := m.Create(draft, renter, t0)
		assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
	})
}

func TestMachine_Accept(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusPending)

	next, effects, err := m.Apply(b, ActionAccept, owner, t0.Add(time.Hour), Params{})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, next.Status)
	assert.True(t, next.ContactShared)
	assert.True(t, next.UpdatedAt.After(b.UpdatedAt))
	assert.Equal(t, []Effect{{Kind: EffectNotify, UserID: renter.UserID, Event: domain.EventBookingAccepted}}, effects)

	// input untouched
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.False(t, b.ContactShared)
}

func TestMachine_RejectThenAccept(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusPending)

	rejected, effects, err := m.Apply(b, ActionReject, owner, t0.Add(time.Hour), Params{Reason: "unavailable"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusRejected, rejected.Status)
	assert.Equal(t, "unavailable", rejected.RejectionReason)
	require.Len(t, effects, 1)
	assert.Equal(t, "unavailable", effects[0].Reason)

	_, _, err = m.Apply(rejected, ActionAccept, owner, t0.Add(2*time.Hour), Params{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))
}

func TestMachine_Authorization(t *testing.T) {
	m := newMachine()

	tests := []struct {
		name   string
		status domain.BookingStatus
		action Action
		actor  domain.Actor
	}{
		{"Renter accepts", domain.BookingStatusPending, ActionAccept, renter},
		{"Renter rejects", domain.BookingStatusPending, ActionReject, renter},
		{"Owner cancels pending", domain.BookingStatusPending, ActionCancel, owner},
		{"Owner expires", domain.BookingStatusPending, ActionExpire, owner},
		{"Owner pays", domain.BookingStatusConfirmed, ActionConfirmPayment, owner},
		{"System picks up", domain.BookingStatusConfirmed, ActionPickup, domain.SystemActor},
		{"Stranger claims owner role", domain.BookingStatusPending, ActionAccept, domain.Actor{UserID: "x", Role: domain.RoleOwner}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := m.Apply(bookingIn(tt.status), tt.action, tt.actor, t0.Add(48*time.Hour), Params{Checklist: &domain.Checklist{}})
			assert.True(t, domain.IsKind(err, domain.ErrorKindNotAuthorized), "got %v", err)
		})
	}
}

func TestMachine_InvalidFromState(t *testing.T) {
	m := newMachine()

	_, _, err := m.Apply(bookingIn(domain.BookingStatusConfirmed), ActionAccept, owner, t0, Params{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))

	_, _, err = m.Apply(bookingIn(domain.BookingStatusPending), ActionPickup, renter, t0, Params{Checklist: &domain.Checklist{}})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))

	_, _, err = m.Apply(bookingIn(domain.BookingStatusInProgress), ActionCancel, renter, t0, Params{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))
}

func TestMachine_TerminalStatesAreClosed(t *testing.T) {
	m := newMachine()
	terminal := []domain.BookingStatus{
		domain.BookingStatusCompleted,
		domain.BookingStatusCancelled,
		domain.BookingStatusRejected,
		domain.BookingStatusExpired,
	}
	actors := []domain.Actor{renter, owner, domain.SystemActor}

	for _, status := range terminal {
		for _, action := range Actions() {
			for _, actor := range actors {
				b := bookingIn(status)
				before := b.Clone()
				next, effects, err := m.Apply(b, action, actor, t0.Add(72*time.Hour), Params{Checklist: &domain.Checklist{}})
				assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition), "%s %s by %s", status, action, actor.Role)
				assert.Nil(t, next)
				assert.Nil(t, effects)
				assert.Equal(t, before, b)
			}
		}
	}
}

func TestMachine_Expire(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusPending)

	t.Run("Before deadline", func(t *testing.T) {
		_, _, err := m.Apply(b, ActionExpire, domain.SystemActor, t0.Add(23*time.Hour), Params{})
		assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))
	})

	t.Run("At deadline", func(t *testing.T) {
		next, effects, err := m.Apply(b, ActionExpire, domain.SystemActor, t0.Add(24*time.Hour), Params{})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusExpired, next.Status)
		assert.Equal(t, []Effect{{Kind: EffectNotify, UserID: renter.UserID, Event: domain.EventBookingExpired}}, effects)
	})

	t.Run("Configurable window", func(t *testing.T) {
		short := NewMachine(time.Hour, utils.DefaultCancellationPolicy())
		next, _, err := short.Apply(b, ActionExpire, domain.SystemActor, t0.Add(time.Hour), Params{})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusExpired, next.Status)
	})
}

func TestMachine_ConfirmPayment(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusConfirmed)

	next, effects, err := m.Apply(b, ActionConfirmPayment, renter, t0.Add(time.Hour), Params{})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, next.Status)
	assert.Equal(t, domain.PaymentStatusCharged, next.PaymentStatus)
	require.Len(t, effects, 2)
	assert.Equal(t, EffectCapturePayment, effects[0].Kind)
	assert.Equal(t, b.TotalPriceCents, effects[0].AmountCents)
	assert.True(t, effects[0].IsPayment())
	assert.Equal(t, owner.UserID, effects[1].UserID)

	_, _, err = m.Apply(next, ActionConfirmPayment, renter, t0.Add(2*time.Hour), Params{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))
}

func TestMachine_Cancel(t *testing.T) {
	m := newMachine()

	t.Run("Renter cancels pending", func(t *testing.T) {
		b := bookingIn(domain.BookingStatusPending)
		next, effects, err := m.Apply(b, ActionCancel, renter, t0, Params{Reason: "plans changed"})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, next.Status)
		assert.Equal(t, renter.UserID, next.CancelledBy)
		assert.Equal(t, domain.PaymentStatusUnpaid, next.PaymentStatus)
		require.NotNil(t, next.Cancellation)
		require.Len(t, effects, 1)
		assert.Equal(t, owner.UserID, effects[0].UserID)
		assert.Equal(t, "plans changed", effects[0].Reason)
	})

	t.Run("Paid booking five days out", func(t *testing.T) {
		b := bookingIn(domain.BookingStatusConfirmed)
		b.TotalPriceCents = 180000
		b.BasePriceCents = 150000
		b.InsuranceFeeCents = 15000
		b.PaymentStatus = domain.PaymentStatusCharged

		next, effects, err := m.Apply(b, ActionCancel, owner, b.StartDate.Add(-5*24*time.Hour), Params{})
		require.NoError(t, err)
		assert.Equal(t, 50, next.Cancellation.RefundPercentage)
		assert.Equal(t, int64(90000), next.Cancellation.NetRefundCents)
		assert.Equal(t, domain.PaymentStatusPartialRefund, next.PaymentStatus)
		require.Len(t, effects, 2)
		assert.Equal(t, Effect{Kind: EffectRefund, AmountCents: 90000}, effects[0])
		assert.Equal(t, renter.UserID, effects[1].UserID)
	})

	t.Run("Paid booking refunded in full", func(t *testing.T) {
		b := bookingIn(domain.BookingStatusConfirmed)
		b.PaymentStatus = domain.PaymentStatusCharged
		next, _, err := m.Apply(b, ActionCancel, renter, t0, Params{})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, next.PaymentStatus)
	})

	t.Run("Paid booking without refund", func(t *testing.T) {
		b := bookingIn(domain.BookingStatusConfirmed)
		b.PaymentStatus = domain.PaymentStatusCharged
		next, effects, err := m.Apply(b, ActionCancel, renter, b.StartDate.Add(-time.Hour), Params{})
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPartialRefund, next.PaymentStatus)
		require.Len(t, effects, 1)
		assert.Equal(t, EffectNotify, effects[0].Kind)
	})
}

func TestMachine_PickupAndReturn(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusConfirmed)

	_, _, err := m.Apply(b, ActionPickup, renter, t0, Params{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))

	_, _, err = m.Apply(b, ActionPickup, renter, t0, Params{Checklist: &domain.Checklist{FuelLevel: 120, PhotoKeys: []string{"k0"}}})
	assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))

	_, _, err = m.Apply(b, ActionPickup, renter, t0, Params{Checklist: &domain.Checklist{FuelLevel: 100}})
	assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
	assert.Nil(t, b.PickupChecklist)

	in := &domain.Checklist{Notes: "clean", FuelLevel: 100, Mileage: 42000, PhotoKeys: []string{"k1"}}
	picked, effects, err := m.Apply(b, ActionPickup, owner, t0.Add(time.Hour), Params{Checklist: in})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, domain.BookingStatusInProgress, picked.Status)
	require.NotNil(t, picked.PickupChecklist)
	assert.Equal(t, owner.UserID, picked.PickupChecklist.RecordedBy)
	assert.Equal(t, []string{"k1"}, picked.PickupChecklist.PhotoKeys)

	// The stored checklist does not alias the caller's slice.
	in.PhotoKeys[0] = "changed"
	assert.Equal(t, "k1", picked.PickupChecklist.PhotoKeys[0])

	returned, _, err := m.Apply(picked, ActionReturn, renter, t0.Add(3*24*time.Hour), Params{Checklist: &domain.Checklist{FuelLevel: 80, PhotoKeys: []string{"k2"}}})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, returned.Status)
	assert.NotNil(t, returned.PickupChecklist)
	assert.NotNil(t, returned.ReturnChecklist)
}

func TestMachine_PickupChecklistWriteOnce(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusConfirmed)
	b.PickupChecklist = &domain.Checklist{Notes: "first"}

	_, _, err := m.Apply(b, ActionPickup, renter, t0, Params{Checklist: &domain.Checklist{}})
	assert.True(t, domain.IsKind(err, domain.ErrorKindInvalidTransition))
	assert.Equal(t, "first", b.PickupChecklist.Notes)
}

func TestMachine_UpdatedAtAdvancesWithClockSkew(t *testing.T) {
	m := newMachine()
	b := bookingIn(domain.BookingStatusPending)
	b.UpdatedAt = t0.Add(time.Hour)

	next, _, err := m.Apply(b, ActionAccept, owner, t0, Params{})
	require.NoError(t, err)
	assert.True(t, next.UpdatedAt.After(b.UpdatedAt))
}

func TestResolveActor(t *testing.T) {
	b := bookingIn(domain.BookingStatusPending)

	a, err := ResolveActor(b, domain.Actor{UserID: renter.UserID})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleRenter, a.Role)

	a, err = ResolveActor(b, domain.Actor{UserID: owner.UserID, Role: domain.RoleRenter})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, a.Role)

	_, err = ResolveActor(b, domain.Actor{UserID: "stranger"})
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotAuthorized))

	_, err = ResolveActor(b, domain.Actor{})
	assert.True(t, domain.IsKind(err, domain.ErrorKindNotAuthorized))

	a, err = ResolveActor(b, domain.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSystem, a.Role)
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(domain.BookingStatusPending, ActionAccept, domain.RoleOwner))
	assert.False(t, Allowed(domain.BookingStatusPending, ActionAccept, domain.RoleRenter))
	assert.True(t, Allowed(domain.BookingStatusConfirmed, ActionCancel, domain.RoleOwner))
	assert.False(t, Allowed(domain.BookingStatusCompleted, ActionReturn, domain.RoleRenter))
}
