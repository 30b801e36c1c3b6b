package lifecycle

import (
	"testing"
	"time"

	"carrental-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     DateRange
		expected bool
	}{
		{"Contained", DateRange{day(10), day(13)}, DateRange{day(11), day(12)}, true},
		{"Partial", DateRange{day(10), day(13)}, DateRange{day(12), day(15)}, true},
		{"Same day turnover", DateRange{day(10), day(13)}, DateRange{day(13), day(15)}, true},
		{"Disjoint", DateRange{day(10), day(13)}, DateRange{day(14), day(15)}, false},
		{"Identical", DateRange{day(10), day(13)}, DateRange{day(10), day(13)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.a, tt.b))
		})
	}
}

func TestOverlaps_Symmetric(t *testing.T) {
	for s1 := 1; s1 <= 8; s1++ {
		for e1 := s1 + 1; e1 <= 9; e1++ {
			for s2 := 1; s2 <= 8; s2++ {
				for e2 := s2 + 1; e2 <= 9; e2++ {
					a := DateRange{day(s1), day(e1)}
					b := DateRange{day(s2), day(e2)}
					assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%v %v", a, b)
				}
			}
		}
	}
}

func TestFindConflict(t *testing.T) {
	existing := []*domain.Booking{
		{ID: "cancelled", VehicleID: "v-1", StartDate: day(10), EndDate: day(13), Status: domain.BookingStatusCancelled},
		{ID: "other-vehicle", VehicleID: "v-2", StartDate: day(10), EndDate: day(13), Status: domain.BookingStatusConfirmed},
		{ID: "held", VehicleID: "v-1", StartDate: day(10), EndDate: day(13), Status: domain.BookingStatusPending},
	}

	c := FindConflict(existing, "v-1", DateRange{day(12), day(15)}, "")
	if assert.NotNil(t, c) {
		assert.Equal(t, "held", c.ID)
	}

	assert.Nil(t, FindConflict(existing, "v-1", DateRange{day(14), day(15)}, ""))
	assert.Nil(t, FindConflict(existing, "v-1", DateRange{day(12), day(15)}, "held"))
}
