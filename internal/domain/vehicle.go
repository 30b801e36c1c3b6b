package domain

// Vehicle is owned by the listing side of the marketplace; bookings only read it.
type Vehicle struct {
	ID                   string `json:"id"`
	OwnerID              string `json:"owner_id"`
	Title                string `json:"title"`
	PricePerDayCents     int64  `json:"price_per_day_cents"`
	SecurityDepositCents *int64 `json:"security_deposit_cents,omitempty"`
	Location             string `json:"location"`
	Currency             string `json:"currency"`
}
