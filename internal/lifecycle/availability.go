package lifecycle

import (
	"time"

	"carrental-backend/internal/domain"
)

// DateRange is a closed rental period. Both ends are inclusive, so a booking
// ending on the day another starts conflicts with it.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func RangeOf(b *domain.Booking) DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// Overlaps reports whether a and b share at least one instant.
func Overlaps(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// FindConflict returns the first occupying booking of vehicleID in existing that
// overlaps r, skipping excludeID.
func FindConflict(existing []*domain.Booking, vehicleID string, r DateRange, excludeID string) *domain.Booking {
	for _, b := range existing {
		if b.VehicleID != vehicleID || b.ID == excludeID || !b.Status.IsOccupying() {
			continue
		}
		if Overlaps(RangeOf(b), r) {
			return b
		}
	}
	return nil
}
