package utils

import (
	"fmt"
	"math"
	"time"

	"carrental-backend/internal/domain"
)

const (
	centsPerUnit = 100
	day          = 24 * time.Hour
)

// PricingPolicy holds the configurable fee parameters.
type PricingPolicy struct {
	// Insurance fee per rental day, in cents, keyed by option.
	InsurancePerDayCents map[domain.InsuranceOption]int64
	ServiceFeePercent    int64
	DepositPercent       int64
}

// DefaultPricingPolicy returns basic 0, standard 50 and premium 100 units per day,
// a 10% service fee and a 30% default deposit.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		InsurancePerDayCents: map[domain.InsuranceOption]int64{
			domain.InsuranceBasic:    0,
			domain.InsuranceStandard: 50 * centsPerUnit,
			domain.InsurancePremium:  100 * centsPerUnit,
		},
		ServiceFeePercent: 10,
		DepositPercent:    30,
	}
}

// PriceBreakdown is the full price snapshot stored on a booking.
type PriceBreakdown struct {
	DurationDays      int   `json:"duration_days"`
	BasePriceCents    int64 `json:"base_price_cents"`
	InsuranceFeeCents int64 `json:"insurance_fee_cents"`
	ServiceFeeCents   int64 `json:"service_fee_cents"`
	TotalPriceCents   int64 `json:"total_price_cents"`
	DepositCents      int64 `json:"deposit_cents"`
}

// ParseBookingDate accepts either yyyy-mm-dd or an RFC 3339 timestamp.
func ParseBookingDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("invalid date format, expected yyyy-mm-dd or RFC 3339: %q", s))
	}
	return t, nil
}

// DurationDays returns ceil((end - start) / 1 day). The end must be after the start.
func DurationDays(start, end time.Time) (int, error) {
	if !end.After(start) {
		return 0, domain.NewValidationError("end date must be after start date")
	}
	return int(math.Ceil(float64(end.Sub(start)) / float64(day))), nil
}

// DaysUntil returns the signed number of days from t to start, rounded up.
func DaysUntil(t, start time.Time) int {
	return int(math.Ceil(float64(start.Sub(t)) / float64(day)))
}

// PercentOfRounded returns percent% of amountCents rounded half-up to a whole
// currency unit. amountCents and percent must be non-negative.
func PercentOfRounded(amountCents, percent int64) int64 {
	const scale = 100 * centsPerUnit
	return (amountCents*percent + scale/2) / scale * centsPerUnit
}

// ComputePricing computes the price snapshot for a rental. A depositOverrideCents
// greater than zero replaces the default deposit.
func ComputePricing(dailyRateCents int64, durationDays int, option domain.InsuranceOption, depositOverrideCents int64, policy PricingPolicy) (PriceBreakdown, error) {
	if dailyRateCents < 0 {
		return PriceBreakdown{}, domain.NewValidationError("daily rate must not be negative")
	}
	if depositOverrideCents < 0 {
		return PriceBreakdown{}, domain.NewValidationError("deposit must not be negative")
	}
	if durationDays < 1 {
		return PriceBreakdown{}, domain.NewValidationError("rental must last at least one day")
	}
	perDay, ok := policy.InsurancePerDayCents[option]
	if !ok {
		return PriceBreakdown{}, domain.NewValidationError(fmt.Sprintf("unknown insurance option %q", option))
	}

	days := int64(durationDays)
	base := dailyRateCents * days
	insurance := perDay * days
	service := PercentOfRounded(base, policy.ServiceFeePercent)

	deposit := depositOverrideCents
	if deposit <= 0 {
		deposit = PercentOfRounded(base, policy.DepositPercent)
	}

	return PriceBreakdown{
		DurationDays:      durationDays,
		BasePriceCents:    base,
		InsuranceFeeCents: insurance,
		ServiceFeeCents:   service,
		TotalPriceCents:   base + insurance + service,
		DepositCents:      deposit,
	}, nil
}
