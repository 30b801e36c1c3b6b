package utils

import (
	"sort"
	"time"

	"carrental-backend/internal/domain"
)

// RefundTier applies when the cancellation happens at least MinDaysBefore days
// before the rental starts.
type RefundTier struct {
	MinDaysBefore    int `yaml:"min_days_before"`
	RefundPercentage int `yaml:"refund_percentage"`
	FeePercentage    int `yaml:"fee_percentage"`
}

// CancellationPolicy is evaluated from the most to the least generous tier.
// Fallback applies when no tier matches, including cancellations after the start.
type CancellationPolicy struct {
	Tiers    []RefundTier
	Fallback RefundTier
}

func DefaultCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{
		Tiers: []RefundTier{
			{MinDaysBefore: 7, RefundPercentage: 100, FeePercentage: 0},
			{MinDaysBefore: 3, RefundPercentage: 50, FeePercentage: 50},
			{MinDaysBefore: 1, RefundPercentage: 0, FeePercentage: 100},
		},
		Fallback: RefundTier{RefundPercentage: 0, FeePercentage: 100},
	}
}

// Tier returns the first tier matching daysBefore.
func (p CancellationPolicy) Tier(daysBefore int) RefundTier {
	tiers := append([]RefundTier(nil), p.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinDaysBefore > tiers[j].MinDaysBefore
	})
	for _, t := range tiers {
		if daysBefore >= t.MinDaysBefore {
			return t
		}
	}
	return p.Fallback
}

// CalculateCancellation derives the refund for cancelling b at cancelledAt.
func CalculateCancellation(b *domain.Booking, cancelledAt time.Time, policy CancellationPolicy) domain.CancellationRecord {
	daysBefore := DaysUntil(cancelledAt, b.StartDate)
	display := daysBefore
	if display < 0 {
		display = 0
	}

	tier := policy.Tier(daysBefore)
	refund := PercentOfRounded(b.TotalPriceCents, int64(tier.RefundPercentage))
	fee := PercentOfRounded(b.TotalPriceCents, int64(tier.FeePercentage))

	return domain.CancellationRecord{
		CancellationDate:  cancelledAt,
		DaysBefore:        daysBefore,
		DisplayDaysBefore: display,
		RefundPercentage:  tier.RefundPercentage,
		FeePercentage:     tier.FeePercentage,
		RefundAmountCents: refund,
		FeeAmountCents:    fee,
		NetRefundCents:    refund,
	}
}
